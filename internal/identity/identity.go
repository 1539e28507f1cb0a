// Package identity parses caller and account identifiers supplied by the
// hosting environment. The ledger treats accounts as opaque; a scheme only
// decides which strings are acceptable and their canonical form.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"incentive-token/internal/domain"
)

// ErrInvalidAccount is returned for identifiers the scheme rejects.
var ErrInvalidAccount = errors.New("invalid account identifier")

// MaxOpaqueLen bounds opaque identifiers, in characters.
const MaxOpaqueLen = 128

// Scheme names.
const (
	SchemeOpaque  = "opaque"
	SchemeBase58  = "base58"
	SchemeEd25519 = "ed25519"
)

// Scheme validates and canonicalizes account identifiers.
type Scheme interface {
	Name() string
	Parse(s string) (domain.Account, error)
}

// ParseScheme returns the scheme registered under name.
// An empty name selects the opaque scheme.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SchemeOpaque:
		return Opaque{}, nil
	case SchemeBase58:
		return Base58{}, nil
	case SchemeEd25519:
		return Ed25519{}, nil
	default:
		return nil, fmt.Errorf("unknown identity scheme %q", name)
	}
}

// Opaque accepts any non-empty printable string without whitespace.
type Opaque struct{}

// Name implements Scheme.
func (Opaque) Name() string { return SchemeOpaque }

// Parse implements Scheme.
func (Opaque) Parse(s string) (domain.Account, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAccount)
	}
	n := 0
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidAccount, s)
		}
		n++
	}
	if n > MaxOpaqueLen {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidAccount, MaxOpaqueLen)
	}
	return domain.Account(s), nil
}

// Base58 accepts base58 (Bitcoin alphabet) strings that decode to 32 bytes,
// the address format of Solana-style chains.
type Base58 struct{}

// Name implements Scheme.
func (Base58) Name() string { return SchemeBase58 }

// Parse implements Scheme.
func (Base58) Parse(s string) (domain.Account, error) {
	key, err := decode32(s)
	if err != nil {
		return "", err
	}
	return domain.Account(base58.Encode(key)), nil
}

// Ed25519 accepts base58-encoded ed25519 public keys. The key must decode
// to a point on the curve.
type Ed25519 struct{}

// Name implements Scheme.
func (Ed25519) Name() string { return SchemeEd25519 }

// Parse implements Scheme.
func (Ed25519) Parse(s string) (domain.Account, error) {
	key, err := decode32(s)
	if err != nil {
		return "", err
	}
	if _, err := new(edwards25519.Point).SetBytes(key); err != nil {
		return "", fmt.Errorf("%w: %s is not an ed25519 public key", ErrInvalidAccount, s)
	}
	return domain.Account(base58.Encode(key)), nil
}

func decode32(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAccount)
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAccount, s, err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("%w: %s decodes to %d bytes, want 32", ErrInvalidAccount, s, len(decoded))
	}
	return decoded, nil
}
