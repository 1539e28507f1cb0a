package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incentive-token/internal/domain"
	"incentive-token/internal/ledger"
	"incentive-token/internal/storage/memory"
)

const (
	deployer = domain.Account("deployer")
	minter   = domain.Account("wallet_1")
	alice    = domain.Account("wallet_2")
	carol    = domain.Account("wallet_3")
)

var quietLogger = log.New(io.Discard, "", 0)

type response struct {
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value"`
	Code  int             `json:"code"`
	Error string          `json:"error"`
}

type testEnv struct {
	ledger *ledger.Ledger
	events *memory.EventLog
	hub    *Hub
	server *httptest.Server
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	var tick atomic.Int64
	tick.Store(1000)
	events := memory.NewEventLog()
	hub := NewHub(quietLogger)

	l, err := ledger.Open(context.Background(), ledger.DefaultGenesis(deployer), ledger.Options{
		Store: memory.NewStateStore(),
		Clock: ledger.ClockFunc(func() int64 { return tick.Add(1) }),
		Observers: []ledger.Observer{
			hub,
			ledger.ObserverFunc(func(e domain.Event) {
				_ = events.Append(context.Background(), &e)
			}),
		},
		Logger: quietLogger,
	})
	require.NoError(t, err)
	if opts.Ledger == nil {
		opts.Ledger = l
	}
	if opts.Events == nil {
		opts.Events = events
	}
	if opts.Hub == nil {
		opts.Hub = hub
	}
	opts.Logger = quietLogger

	srv := httptest.NewServer(NewServer(opts).Handler())
	t.Cleanup(srv.Close)

	return &testEnv{ledger: opts.Ledger, events: events, hub: opts.Hub, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, caller domain.Account, body string) (int, response) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rdr)
	require.NoError(t, err)
	if caller != "" {
		req.Header.Set(CallerHeader, string(caller))
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetToken(t *testing.T) {
	env := newTestEnv(t, Options{})

	status, resp := env.do(t, http.MethodGet, "/v1/token", "", "")
	require.Equal(t, http.StatusOK, status)
	require.True(t, resp.OK)

	var tok TokenView
	require.NoError(t, json.Unmarshal(resp.Value, &tok))
	assert.Equal(t, "IncentiveToken", tok.Name)
	assert.Equal(t, "ITK", tok.Symbol)
	assert.Equal(t, 6, tok.Decimals)
	assert.Nil(t, tok.URI)
	assert.Equal(t, int64(0), tok.TotalSupply)
	assert.Equal(t, "deployer", tok.Admin)
}

func TestMintTransferBurnFlow(t *testing.T) {
	env := newTestEnv(t, Options{})

	status, resp := env.do(t, http.MethodPost, "/v1/mint", deployer,
		`{"amount":1000,"recipient":"wallet_2","metadata":"bounty #1"}`)
	require.Equal(t, http.StatusOK, status, resp.Error)
	var rec MintRecordView
	require.NoError(t, json.Unmarshal(resp.Value, &rec))
	assert.Equal(t, uint64(1), rec.ID)
	assert.Equal(t, "wallet_2", rec.Recipient)
	assert.Equal(t, int64(1001), rec.LogicalTime)

	status, resp = env.do(t, http.MethodPost, "/v1/transfer", alice,
		`{"amount":300,"sender":"wallet_2","recipient":"wallet_3","memo":"thanks"}`)
	require.Equal(t, http.StatusOK, status, resp.Error)
	assert.JSONEq(t, `true`, string(resp.Value))

	status, _ = env.do(t, http.MethodPost, "/v1/burn", carol, `{"amount":100}`)
	require.Equal(t, http.StatusOK, status)

	status, resp = env.do(t, http.MethodGet, "/v1/balances/wallet_2", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"account":"wallet_2","balance":700}`, string(resp.Value))

	status, resp = env.do(t, http.MethodGet, "/v1/balances/wallet_3", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"account":"wallet_3","balance":200}`, string(resp.Value))

	status, resp = env.do(t, http.MethodGet, "/v1/mints/1", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":1,"amount":1000,"recipient":"wallet_2","metadata":"bounty #1","logical_time":1001}`, string(resp.Value))

	status, resp = env.do(t, http.MethodGet, "/v1/audit", "", "")
	require.Equal(t, http.StatusOK, status)
	var audit AuditView
	require.NoError(t, json.Unmarshal(resp.Value, &audit))
	assert.True(t, audit.OK)
	assert.Equal(t, int64(900), audit.TotalSupply)
	assert.Equal(t, 2, audit.Holders)

	status, resp = env.do(t, http.MethodGet, "/v1/events?account=wallet_3", "", "")
	require.Equal(t, http.StatusOK, status)
	var events []EventView
	require.NoError(t, json.Unmarshal(resp.Value, &events))
	require.Len(t, events, 2)
	assert.Equal(t, "TRANSFER", events[0].Kind)
	require.NotNil(t, events[0].Memo)
	assert.Equal(t, "thanks", *events[0].Memo)
	assert.Equal(t, "BURN", events[1].Kind)

	status, resp = env.do(t, http.MethodGet, "/v1/events?account=wallet_3&kind=BURN", "", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Value, &events))
	assert.Len(t, events, 1)
}

func TestLedgerErrorsMapToStatus(t *testing.T) {
	env := newTestEnv(t, Options{})

	tests := []struct {
		name       string
		method     string
		path       string
		caller     domain.Account
		body       string
		wantStatus int
		wantCode   ledger.Code
	}{
		{"non-minter mint", http.MethodPost, "/v1/mint", alice,
			`{"amount":1,"recipient":"wallet_3","metadata":""}`, http.StatusForbidden, ledger.CodeInvalidMinter},
		{"zero amount", http.MethodPost, "/v1/mint", deployer,
			`{"amount":0,"recipient":"wallet_3","metadata":""}`, http.StatusBadRequest, ledger.CodeInvalidAmount},
		{"mint to sentinel", http.MethodPost, "/v1/mint", deployer,
			`{"amount":5,"recipient":"deployer","metadata":""}`, http.StatusBadRequest, ledger.CodeInvalidRecipient},
		{"transfer for someone else", http.MethodPost, "/v1/transfer", carol,
			`{"amount":1,"sender":"wallet_2","recipient":"wallet_3"}`, http.StatusForbidden, ledger.CodeUnauthorized},
		{"insufficient balance", http.MethodPost, "/v1/transfer", alice,
			`{"amount":1,"sender":"wallet_2","recipient":"wallet_3"}`, http.StatusUnprocessableEntity, ledger.CodeInsufficientBalance},
		{"long memo", http.MethodPost, "/v1/transfer", alice,
			`{"amount":1,"sender":"wallet_2","recipient":"wallet_3","memo":"` + strings.Repeat("m", 35) + `"}`,
			http.StatusBadRequest, ledger.CodeInvalidMemo},
		{"non-admin pause", http.MethodPost, "/v1/pause", alice, "", http.StatusForbidden, ledger.CodeUnauthorized},
		{"uri too long", http.MethodPut, "/v1/token/uri", deployer,
			`{"uri":"` + strings.Repeat("u", 257) + `"}`, http.StatusBadRequest, ledger.CodeInvalidURI},
		{"admin already a minter", http.MethodPost, "/v1/minters", deployer,
			`{"account":"deployer"}`, http.StatusConflict, ledger.CodeAlreadyRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := env.do(t, tt.method, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, resp.OK)
			assert.Equal(t, int(tt.wantCode), resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}

	// Nothing was committed
	assert.Equal(t, int64(0), env.ledger.TotalSupply())
	assert.Equal(t, uint64(0), env.ledger.MintCounter())
}

func TestPausedReturnsLocked(t *testing.T) {
	env := newTestEnv(t, Options{})

	status, _ := env.do(t, http.MethodPost, "/v1/pause", deployer, "")
	require.Equal(t, http.StatusOK, status)

	status, resp := env.do(t, http.MethodPost, "/v1/mint", deployer,
		`{"amount":1,"recipient":"wallet_2","metadata":""}`)
	assert.Equal(t, http.StatusLocked, status)
	assert.Equal(t, int(ledger.CodeMintPaused), resp.Code)

	status, resp = env.do(t, http.MethodPost, "/v1/burn", alice, `{"amount":1}`)
	assert.Equal(t, http.StatusLocked, status)
	assert.Equal(t, int(ledger.CodeBurnPaused), resp.Code)

	// Identifiers are parsed before the ledger checks run
	status, resp = env.do(t, http.MethodPost, "/v1/mint", deployer,
		`{"amount":1,"recipient":"two words","metadata":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Zero(t, resp.Code)

	status, _ = env.do(t, http.MethodPost, "/v1/unpause", deployer, "")
	require.Equal(t, http.StatusOK, status)
	assert.False(t, env.ledger.IsPaused())
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t, Options{})

	status, _ := env.do(t, http.MethodPost, "/v1/minters", deployer, `{"account":"wallet_1"}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.ledger.IsMinter(minter))

	status, resp := env.do(t, http.MethodGet, "/v1/minters/wallet_1", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"account":"wallet_1","is_minter":true}`, string(resp.Value))

	status, _ = env.do(t, http.MethodDelete, "/v1/minters/wallet_1", deployer, "")
	require.Equal(t, http.StatusOK, status)
	assert.False(t, env.ledger.IsMinter(minter))

	status, _ = env.do(t, http.MethodPut, "/v1/token/uri", deployer, `{"uri":"ipfs://itk"}`)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.ledger.TokenURI())
	assert.Equal(t, "ipfs://itk", *env.ledger.TokenURI())

	status, _ = env.do(t, http.MethodPut, "/v1/token/uri", deployer, `{"uri":null}`)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, env.ledger.TokenURI())

	status, _ = env.do(t, http.MethodPut, "/v1/admin", deployer, `{"admin":"wallet_2"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice, env.ledger.Admin())

	// The old admin lost its rights
	status, resp = env.do(t, http.MethodPost, "/v1/pause", deployer, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, int(ledger.CodeUnauthorized), resp.Code)
}

func TestRequestErrors(t *testing.T) {
	env := newTestEnv(t, Options{})

	status, resp := env.do(t, http.MethodPost, "/v1/pause", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Zero(t, resp.Code)

	status, _ = env.do(t, http.MethodPost, "/v1/mint", deployer, `{"amount":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/v1/mint", deployer, `{"amount":1,"extra":true}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = env.do(t, http.MethodPost, "/v1/mint", deployer, `{"amount":1,"recipient":"two words"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Zero(t, resp.Code)

	status, _ = env.do(t, http.MethodGet, "/v1/mints/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/v1/mints/7", "", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/v1/events?kind=STEAL", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

// failingStore rejects every Apply after Init.
type failingStore struct {
	*memory.StateStore
}

func (failingStore) Apply(context.Context, *domain.Delta) error {
	return errors.New("disk full")
}

func TestStorageFailureReturns500(t *testing.T) {
	l, err := ledger.Open(context.Background(), ledger.DefaultGenesis(deployer), ledger.Options{
		Store:  failingStore{memory.NewStateStore()},
		Logger: quietLogger,
	})
	require.NoError(t, err)
	env := newTestEnv(t, Options{Ledger: l})

	status, resp := env.do(t, http.MethodPost, "/v1/pause", deployer, "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, resp.OK)
	assert.Zero(t, resp.Code)
	assert.False(t, l.IsPaused())
}

func TestRateLimitPerCaller(t *testing.T) {
	env := newTestEnv(t, Options{RateLimit: 0.001, RateBurst: 1})

	status, _ := env.do(t, http.MethodPost, "/v1/pause", deployer, "")
	assert.Equal(t, http.StatusOK, status)

	status, resp := env.do(t, http.MethodPost, "/v1/unpause", deployer, "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate limit exceeded", resp.Error)

	// Another caller has its own budget
	status, _ = env.do(t, http.MethodPost, "/v1/burn", alice, `{"amount":1}`)
	assert.Equal(t, http.StatusLocked, status)

	// Queries are never limited
	status, _ = env.do(t, http.MethodGet, "/v1/token", deployer, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestStatusFor(t *testing.T) {
	tests := map[ledger.Code]int{
		ledger.CodeUnauthorized:        http.StatusForbidden,
		ledger.CodePaused:              http.StatusLocked,
		ledger.CodeInvalidAmount:       http.StatusBadRequest,
		ledger.CodeInvalidRecipient:    http.StatusBadRequest,
		ledger.CodeInvalidMinter:       http.StatusForbidden,
		ledger.CodeAlreadyRegistered:   http.StatusConflict,
		ledger.CodeMetadataTooLong:     http.StatusBadRequest,
		ledger.CodeInsufficientBalance: http.StatusUnprocessableEntity,
		ledger.CodeInvalidMemo:         http.StatusBadRequest,
		ledger.CodeTransferPaused:      http.StatusLocked,
		ledger.CodeBurnPaused:          http.StatusLocked,
		ledger.CodeMintPaused:          http.StatusLocked,
		ledger.CodeNotOwner:            http.StatusForbidden,
		ledger.CodeInvalidURI:          http.StatusBadRequest,
	}
	for code, want := range tests {
		assert.Equal(t, want, statusFor(code), code.String())
	}
}

func TestEnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewServer(Options{Logger: quietLogger})
	s.writeError(rec, ledger.ErrInsufficientBalance)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":false,"code":107,"error":"insufficient balance"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeValue(rec, true)
	assert.JSONEq(t, `{"ok":true,"value":true}`, strings.TrimSpace(rec.Body.String()))

}
