package ledger

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodes_StableValues(t *testing.T) {
	tests := []struct {
		err  *Error
		code int
		name string
	}{
		{ErrUnauthorized, 100, "UNAUTHORIZED"},
		{ErrPaused, 101, "PAUSED"},
		{ErrInvalidAmount, 102, "INVALID_AMOUNT"},
		{ErrInvalidRecipient, 103, "INVALID_RECIPIENT"},
		{ErrInvalidMinter, 104, "INVALID_MINTER"},
		{ErrAlreadyRegistered, 105, "ALREADY_REGISTERED"},
		{ErrMetadataTooLong, 106, "METADATA_TOO_LONG"},
		{ErrInsufficientBalance, 107, "INSUFFICIENT_BALANCE"},
		{ErrInvalidMemo, 108, "INVALID_MEMO"},
		{ErrTransferPaused, 109, "TRANSFER_PAUSED"},
		{ErrBurnPaused, 110, "BURN_PAUSED"},
		{ErrMintPaused, 111, "MINT_PAUSED"},
		{ErrNotOwner, 112, "NOT_OWNER"},
		{ErrInvalidURI, 113, "INVALID_URI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if int(tt.err.Code) != tt.code {
				t.Errorf("code mismatch: got %d, want %d", tt.err.Code, tt.code)
			}
			if tt.err.Code.String() != tt.name {
				t.Errorf("name mismatch: got %s, want %s", tt.err.Code.String(), tt.name)
			}
			if !tt.err.Code.IsValid() {
				t.Errorf("code %d should be valid", tt.code)
			}
			if tt.err.Error() == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}

func TestCode_Unknown(t *testing.T) {
	c := Code(999)
	if c.IsValid() {
		t.Error("999 should not be a valid code")
	}
	if c.String() != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got %s", c.String())
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("handle mint: %w", ErrMintPaused)

	code, ok := CodeOf(wrapped)
	if !ok || code != CodeMintPaused {
		t.Errorf("expected MINT_PAUSED from wrapped error, got %v %v", code, ok)
	}

	if _, ok := CodeOf(nil); ok {
		t.Error("nil error should have no code")
	}
	if _, ok := CodeOf(errors.New("connection reset")); ok {
		t.Error("foreign error should have no code")
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	fresh := &Error{Code: CodeInsufficientBalance}

	if !errors.Is(fresh, ErrInsufficientBalance) {
		t.Error("errors with equal codes should match")
	}
	if errors.Is(fresh, ErrInvalidAmount) {
		t.Error("errors with different codes should not match")
	}
}
