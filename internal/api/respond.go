package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"incentive-token/internal/ledger"
)

// envelope is the body of every API response.
type envelope struct {
	OK    bool        `json:"ok"`
	Value interface{} `json:"value,omitempty"`
	Code  int         `json:"code,omitempty"`
	Error string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeValue(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Value: v})
}

// writeMessage writes a failure that did not come from ledger validation.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Error: msg})
}

// writeError maps ledger codes onto HTTP status. Malformed identifiers are
// 400; remaining errors without a ledger code are commit failures and become 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var bad badAccount
	if errors.As(err, &bad) {
		writeMessage(w, http.StatusBadRequest, bad.Error())
		return
	}

	code, ok := ledger.CodeOf(err)
	if !ok {
		s.logger.Printf("Ledger commit failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "ledger storage failure")
		return
	}
	writeJSON(w, statusFor(code), envelope{Code: int(code), Error: err.Error()})
}

func statusFor(code ledger.Code) int {
	switch code {
	case ledger.CodeUnauthorized, ledger.CodeInvalidMinter, ledger.CodeNotOwner:
		return http.StatusForbidden
	case ledger.CodeAlreadyRegistered:
		return http.StatusConflict
	case ledger.CodePaused, ledger.CodeTransferPaused, ledger.CodeBurnPaused, ledger.CodeMintPaused:
		return http.StatusLocked
	case ledger.CodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON body")
	}
	return nil
}
