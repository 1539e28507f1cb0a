package ledger

import "errors"

// Code is the stable numeric error code reported to hosting shells.
type Code int

// Error codes. The set is closed and the values never change.
const (
	CodeUnauthorized        Code = 100
	CodePaused              Code = 101
	CodeInvalidAmount       Code = 102
	CodeInvalidRecipient    Code = 103
	CodeInvalidMinter       Code = 104
	CodeAlreadyRegistered   Code = 105
	CodeMetadataTooLong     Code = 106
	CodeInsufficientBalance Code = 107
	CodeInvalidMemo         Code = 108
	CodeTransferPaused      Code = 109
	CodeBurnPaused          Code = 110
	CodeMintPaused          Code = 111
	CodeNotOwner            Code = 112
	CodeInvalidURI          Code = 113
)

var codeNames = map[Code]string{
	CodeUnauthorized:        "UNAUTHORIZED",
	CodePaused:              "PAUSED",
	CodeInvalidAmount:       "INVALID_AMOUNT",
	CodeInvalidRecipient:    "INVALID_RECIPIENT",
	CodeInvalidMinter:       "INVALID_MINTER",
	CodeAlreadyRegistered:   "ALREADY_REGISTERED",
	CodeMetadataTooLong:     "METADATA_TOO_LONG",
	CodeInsufficientBalance: "INSUFFICIENT_BALANCE",
	CodeInvalidMemo:         "INVALID_MEMO",
	CodeTransferPaused:      "TRANSFER_PAUSED",
	CodeBurnPaused:          "BURN_PAUSED",
	CodeMintPaused:          "MINT_PAUSED",
	CodeNotOwner:            "NOT_OWNER",
	CodeInvalidURI:          "INVALID_URI",
}

var codeMessages = map[Code]string{
	CodeUnauthorized:        "unauthorized",
	CodePaused:              "ledger paused",
	CodeInvalidAmount:       "invalid amount",
	CodeInvalidRecipient:    "invalid recipient",
	CodeInvalidMinter:       "caller is not a minter",
	CodeAlreadyRegistered:   "minter already registered",
	CodeMetadataTooLong:     "metadata too long",
	CodeInsufficientBalance: "insufficient balance",
	CodeInvalidMemo:         "invalid memo",
	CodeTransferPaused:      "transfers paused",
	CodeBurnPaused:          "burns paused",
	CodeMintPaused:          "minting paused",
	CodeNotOwner:            "not owner",
	CodeInvalidURI:          "invalid token uri",
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsValid checks if the code belongs to the enumeration.
func (c Code) IsValid() bool {
	_, ok := codeNames[c]
	return ok
}

// Error is a caller-visible validation failure. A failed operation never
// changes ledger state.
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	return codeMessages[e.Code]
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Validation errors.
var (
	ErrUnauthorized        = &Error{Code: CodeUnauthorized}
	ErrPaused              = &Error{Code: CodePaused}
	ErrInvalidAmount       = &Error{Code: CodeInvalidAmount}
	ErrInvalidRecipient    = &Error{Code: CodeInvalidRecipient}
	ErrInvalidMinter       = &Error{Code: CodeInvalidMinter}
	ErrAlreadyRegistered   = &Error{Code: CodeAlreadyRegistered}
	ErrMetadataTooLong     = &Error{Code: CodeMetadataTooLong}
	ErrInsufficientBalance = &Error{Code: CodeInsufficientBalance}
	ErrInvalidMemo         = &Error{Code: CodeInvalidMemo}
	ErrTransferPaused      = &Error{Code: CodeTransferPaused}
	ErrBurnPaused          = &Error{Code: CodeBurnPaused}
	ErrMintPaused          = &Error{Code: CodeMintPaused}
	ErrNotOwner            = &Error{Code: CodeNotOwner}
	ErrInvalidURI          = &Error{Code: CodeInvalidURI}
)

// CodeOf extracts the ledger code from err. The second return value is false
// for nil and for errors that did not originate from ledger validation, such
// as storage failures.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
