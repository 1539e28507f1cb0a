package domain

// Account identifies a holder or caller. The ledger only compares accounts
// for equality; the representation is owned by the identity scheme.
type Account string

// String returns the account as a plain string.
func (a Account) String() string {
	return string(a)
}

// IsZero reports whether the account is empty.
func (a Account) IsZero() bool {
	return a == ""
}
