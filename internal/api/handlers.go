package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"incentive-token/internal/domain"
	"incentive-token/internal/ledger"
	"incentive-token/internal/observability"
)

// errNoCaller is returned when the X-Caller header is absent.
var errNoCaller = errors.New("missing " + CallerHeader + " header")

func (s *Server) caller(r *http.Request) (domain.Account, error) {
	raw := r.Header.Get(CallerHeader)
	if raw == "" {
		return "", errNoCaller
	}
	return s.scheme.Parse(raw)
}

// account parses an account identifier with the configured scheme.
func (s *Server) account(raw string) (domain.Account, error) {
	return s.scheme.Parse(raw)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	writeValue(w, NewTokenView(s.ledger.Config()))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct, err := s.account(chi.URLParam(r, "account"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeValue(w, map[string]interface{}{
		"account": string(acct),
		"balance": s.ledger.BalanceOf(acct),
	})
}

func (s *Server) handleIsMinter(w http.ResponseWriter, r *http.Request) {
	acct, err := s.account(chi.URLParam(r, "account"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeValue(w, map[string]interface{}{
		"account":   string(acct),
		"is_minter": s.ledger.IsMinter(acct),
	})
}

func (s *Server) handleMintRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid mint id")
		return
	}
	rec, ok := s.ledger.MintRecord(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "mint record not found")
		return
	}
	writeValue(w, NewMintRecordView(rec))
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	writeValue(w, NewAuditView(s.ledger.Audit()))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		events []*domain.Event
		err    error
	)
	switch {
	case q.Get("account") != "":
		acct, perr := s.account(q.Get("account"))
		if perr != nil {
			writeMessage(w, http.StatusBadRequest, perr.Error())
			return
		}
		events, err = s.events.GetByAccount(r.Context(), acct)
	case q.Get("kind") != "":
		kind := domain.Operation(q.Get("kind"))
		if !kind.IsValid() {
			writeMessage(w, http.StatusBadRequest, "unknown event kind")
			return
		}
		events, err = s.events.GetByKind(r.Context(), kind)
	default:
		events, err = s.events.GetAll(r.Context())
	}
	if err != nil {
		s.logger.Printf("Failed to query events: %v", err)
		writeMessage(w, http.StatusInternalServerError, "event log unavailable")
		return
	}

	// account and kind combine as a conjunction
	if kind := q.Get("kind"); kind != "" && q.Get("account") != "" {
		filtered := events[:0]
		for _, e := range events {
			if string(e.Kind) == kind {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, NewEventView(e))
	}
	writeValue(w, views)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var acct domain.Account
	if raw := r.URL.Query().Get("account"); raw != "" {
		var err error
		if acct, err = s.account(raw); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	s.hub.serve(w, r, acct)
}

// mutate runs one ledger operation for an authenticated caller and records
// its outcome. fn returns the success value.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op domain.Operation, body interface{}, fn func(caller domain.Account) (interface{}, error)) {
	caller, err := s.caller(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errNoCaller) {
			status = http.StatusUnauthorized
		}
		writeMessage(w, status, err.Error())
		return
	}

	if body != nil {
		if err := decodeBody(w, r, body); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	start := time.Now()
	value, err := fn(caller)
	observability.RecordOperation(op, resultLabel(err), time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, err)
		return
	}

	observability.UpdateLedgerState(s.ledger.TotalSupply(), s.ledger.IsPaused(), s.ledger.MintCounter())
	writeValue(w, value)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := ledger.CodeOf(err); ok {
		return code.String()
	}
	var bad badAccount
	if errors.As(err, &bad) {
		return "INVALID_ACCOUNT"
	}
	return "error"
}

// badAccount wraps identifier parse failures so they are reported as 400.
type badAccount struct{ err error }

func (b badAccount) Error() string { return b.err.Error() }

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	s.mutate(w, r, domain.OpMint, &req, func(caller domain.Account) (interface{}, error) {
		recipient, err := s.account(req.Recipient)
		if err != nil {
			return nil, badAccount{err}
		}
		rec, err := s.ledger.Mint(r.Context(), caller, req.Amount, recipient, req.Metadata)
		if err != nil {
			return nil, err
		}
		return NewMintRecordView(rec), nil
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	s.mutate(w, r, domain.OpTransfer, &req, func(caller domain.Account) (interface{}, error) {
		sender, err := s.account(req.Sender)
		if err != nil {
			return nil, badAccount{err}
		}
		recipient, err := s.account(req.Recipient)
		if err != nil {
			return nil, badAccount{err}
		}
		return true, s.ledger.Transfer(r.Context(), caller, req.Amount, sender, recipient, req.Memo)
	})
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	s.mutate(w, r, domain.OpBurn, &req, func(caller domain.Account) (interface{}, error) {
		return true, s.ledger.Burn(r.Context(), caller, req.Amount)
	})
}

func (s *Server) handleSetAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	s.mutate(w, r, domain.OpSetAdmin, &req, func(caller domain.Account) (interface{}, error) {
		admin, err := s.account(req.Admin)
		if err != nil {
			return nil, badAccount{err}
		}
		return true, s.ledger.SetAdmin(r.Context(), caller, admin)
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, domain.OpPause, nil, func(caller domain.Account) (interface{}, error) {
		return true, s.ledger.Pause(r.Context(), caller)
	})
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, domain.OpUnpause, nil, func(caller domain.Account) (interface{}, error) {
		return true, s.ledger.Unpause(r.Context(), caller)
	})
}

func (s *Server) handleAddMinter(w http.ResponseWriter, r *http.Request) {
	var req minterRequest
	s.mutate(w, r, domain.OpAddMinter, &req, func(caller domain.Account) (interface{}, error) {
		acct, err := s.account(req.Account)
		if err != nil {
			return nil, badAccount{err}
		}
		return true, s.ledger.AddMinter(r.Context(), caller, acct)
	})
}

func (s *Server) handleRemoveMinter(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, domain.OpRemoveMinter, nil, func(caller domain.Account) (interface{}, error) {
		acct, err := s.account(chi.URLParam(r, "account"))
		if err != nil {
			return nil, badAccount{err}
		}
		return true, s.ledger.RemoveMinter(r.Context(), caller, acct)
	})
}

func (s *Server) handleSetTokenURI(w http.ResponseWriter, r *http.Request) {
	var req uriRequest
	s.mutate(w, r, domain.OpSetTokenURI, &req, func(caller domain.Account) (interface{}, error) {
		return true, s.ledger.SetTokenURI(r.Context(), caller, req.URI)
	})
}
