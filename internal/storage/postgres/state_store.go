package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"incentive-token/internal/domain"
	"incentive-token/internal/observability"
	"incentive-token/internal/storage"
)

// StateStore implements storage.StateStore using PostgreSQL.
// Each delta is written in a single transaction.
type StateStore struct {
	pool *Pool
}

// NewStateStore creates a new StateStore.
func NewStateStore(pool *Pool) *StateStore {
	return &StateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StateStore = (*StateStore)(nil)

// Load returns the persisted state. Returns ErrNotFound if ledger_config is empty.
func (s *StateStore) Load(ctx context.Context) (snap *domain.Snapshot, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "load", time.Since(start).Seconds(), ignoreNotFound(err))
	}()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cfg, err := scanConfig(tx.QueryRow(ctx, `
		SELECT admin, sentinel, paused, token_name, token_symbol, token_decimals,
		       token_uri, total_supply, mint_counter, op_counter
		FROM ledger_config
		WHERE id = 1
	`))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger config: %w", err)
	}

	snap = domain.NewSnapshot(*cfg)

	rows, err := tx.Query(ctx, `SELECT account, amount FROM balances`)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	for rows.Next() {
		var account string
		var amount int64
		if err := rows.Scan(&account, &amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		snap.Balances[domain.Account(account)] = amount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}

	rows, err = tx.Query(ctx, `SELECT account, active FROM minters`)
	if err != nil {
		return nil, fmt.Errorf("query minters: %w", err)
	}
	for rows.Next() {
		var account string
		var active bool
		if err := rows.Scan(&account, &active); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan minter: %w", err)
		}
		snap.Minters[domain.Account(account)] = active
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate minters: %w", err)
	}

	rows, err = tx.Query(ctx, `
		SELECT id, amount, recipient, metadata, logical_time
		FROM mint_records
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query mint records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanMintRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mint record: %w", err)
		}
		snap.MintRecords[r.ID] = *r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint records: %w", err)
	}

	return snap, nil
}

// Init writes the genesis snapshot. Returns ErrDuplicateKey if already initialized.
func (s *StateStore) Init(ctx context.Context, snap *domain.Snapshot) (err error) {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "init", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cfg := snap.Config
	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_config (
			id, admin, sentinel, paused, token_name, token_symbol, token_decimals,
			token_uri, total_supply, mint_counter, op_counter
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		string(cfg.Admin),
		string(cfg.Sentinel),
		cfg.Paused,
		cfg.Token.Name,
		cfg.Token.Symbol,
		cfg.Token.Decimals,
		cfg.Token.URI,
		cfg.TotalSupply,
		int64(cfg.MintCounter),
		int64(cfg.OpCounter),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger config: %w", err)
	}

	for account, amount := range snap.Balances {
		if err := upsertBalance(ctx, tx, account, amount); err != nil {
			return err
		}
	}
	for account, active := range snap.Minters {
		if err := upsertMinter(ctx, tx, account, active); err != nil {
			return err
		}
	}
	for _, r := range snap.MintRecords {
		if err := insertMintRecord(ctx, tx, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Apply writes one delta in a transaction. The config update is guarded by
// the operation counter: returns ErrConflict if another writer advanced it,
// ErrNotFound if the store was never initialized.
func (s *StateStore) Apply(ctx context.Context, d *domain.Delta) (err error) {
	if d == nil || d.Config.OpCounter == 0 {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "apply", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the config row first so concurrent writers serialize on it.
	var current int64
	err = tx.QueryRow(ctx, `SELECT op_counter FROM ledger_config WHERE id = 1 FOR UPDATE`).Scan(&current)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock ledger config: %w", err)
	}
	if uint64(current)+1 != d.Config.OpCounter {
		return storage.ErrConflict
	}

	for account, amount := range d.Balances {
		if err := upsertBalance(ctx, tx, account, amount); err != nil {
			return err
		}
	}
	if d.Minter != nil {
		if err := upsertMinter(ctx, tx, d.Minter.Account, d.Minter.Active); err != nil {
			return err
		}
	}
	if d.Record != nil {
		if err := insertMintRecord(ctx, tx, *d.Record); err != nil {
			return err
		}
	}

	cfg := d.Config
	_, err = tx.Exec(ctx, `
		UPDATE ledger_config SET
			admin = $1, sentinel = $2, paused = $3, token_name = $4, token_symbol = $5,
			token_decimals = $6, token_uri = $7, total_supply = $8, mint_counter = $9,
			op_counter = $10, updated_at = NOW()
		WHERE id = 1
	`,
		string(cfg.Admin),
		string(cfg.Sentinel),
		cfg.Paused,
		cfg.Token.Name,
		cfg.Token.Symbol,
		cfg.Token.Decimals,
		cfg.Token.URI,
		cfg.TotalSupply,
		int64(cfg.MintCounter),
		int64(cfg.OpCounter),
	)
	if err != nil {
		return fmt.Errorf("update ledger config: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func upsertBalance(ctx context.Context, tx pgx.Tx, account domain.Account, amount int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO balances (account, amount) VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
	`, string(account), amount)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("upsert balance %s: %w", account, storage.ErrInvalidInput)
		}
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

func upsertMinter(ctx context.Context, tx pgx.Tx, account domain.Account, active bool) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO minters (account, active) VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET active = EXCLUDED.active, updated_at = NOW()
	`, string(account), active)
	if err != nil {
		return fmt.Errorf("upsert minter: %w", err)
	}
	return nil
}

func insertMintRecord(ctx context.Context, tx pgx.Tx, r domain.MintRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO mint_records (id, amount, recipient, metadata, logical_time)
		VALUES ($1, $2, $3, $4, $5)
	`, int64(r.ID), r.Amount, string(r.Recipient), r.Metadata, r.LogicalTime)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert mint record: %w", err)
	}
	return nil
}

// scanConfig scans the singleton ledger_config row.
func scanConfig(row pgx.Row) (*domain.LedgerConfig, error) {
	var (
		cfg               domain.LedgerConfig
		admin, sentinel   string
		mintCounter, opCt int64
	)

	err := row.Scan(
		&admin,
		&sentinel,
		&cfg.Paused,
		&cfg.Token.Name,
		&cfg.Token.Symbol,
		&cfg.Token.Decimals,
		&cfg.Token.URI,
		&cfg.TotalSupply,
		&mintCounter,
		&opCt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Admin = domain.Account(admin)
	cfg.Sentinel = domain.Account(sentinel)
	cfg.MintCounter = uint64(mintCounter)
	cfg.OpCounter = uint64(opCt)
	return &cfg, nil
}

// scanMintRecord scans a single row into MintRecord.
func scanMintRecord(row pgx.Row) (*domain.MintRecord, error) {
	var (
		r         domain.MintRecord
		id        int64
		recipient string
	)

	if err := row.Scan(&id, &r.Amount, &recipient, &r.Metadata, &r.LogicalTime); err != nil {
		return nil, err
	}

	r.ID = uint64(id)
	r.Recipient = domain.Account(recipient)
	return &r, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
