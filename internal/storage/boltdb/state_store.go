// Package boltdb implements the ledger state store on an embedded BoltDB file.
// It suits the CLI and single-node servers that do not run PostgreSQL.
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"incentive-token/internal/domain"
	"incentive-token/internal/observability"
	"incentive-token/internal/storage"
)

// Bucket names.
var (
	configBucket  = []byte("config")
	balanceBucket = []byte("balances")
	minterBucket  = []byte("minters")
	recordBucket  = []byte("mint_records")
)

var configKey = []byte("ledger")

// StateStore implements storage.StateStore on a bolt database file.
type StateStore struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*StateStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{configBucket, balanceBucket, minterBucket, recordBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &StateStore{db: db}, nil
}

// Close closes the database file.
func (s *StateStore) Close() error {
	return s.db.Close()
}

// Compile-time interface check.
var _ storage.StateStore = (*StateStore)(nil)

// Load returns the persisted state. Returns ErrNotFound if never initialized.
func (s *StateStore) Load(_ context.Context) (snap *domain.Snapshot, err error) {
	start := time.Now()
	defer func() {
		if err == storage.ErrNotFound {
			observability.RecordDBQuery("bolt", "load", time.Since(start).Seconds(), nil)
			return
		}
		observability.RecordDBQuery("bolt", "load", time.Since(start).Seconds(), err)
	}()

	err = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(configBucket).Get(configKey)
		if raw == nil {
			return storage.ErrNotFound
		}

		var cfg domain.LedgerConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
		snap = domain.NewSnapshot(cfg)

		err := tx.Bucket(balanceBucket).ForEach(func(k, v []byte) error {
			if len(v) != 8 {
				return fmt.Errorf("decode balance %s: bad length %d", k, len(v))
			}
			snap.Balances[domain.Account(k)] = int64(binary.BigEndian.Uint64(v))
			return nil
		})
		if err != nil {
			return err
		}

		err = tx.Bucket(minterBucket).ForEach(func(k, v []byte) error {
			snap.Minters[domain.Account(k)] = len(v) == 1 && v[0] == 1
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(recordBucket).ForEach(func(k, v []byte) error {
			var r domain.MintRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode mint record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			snap.MintRecords[r.ID] = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Init writes the genesis snapshot. Returns ErrDuplicateKey if already initialized.
func (s *StateStore) Init(_ context.Context, snap *domain.Snapshot) (err error) {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("bolt", "init", time.Since(start).Seconds(), err)
	}()

	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(configBucket).Get(configKey) != nil {
			return storage.ErrDuplicateKey
		}
		for acct, bal := range snap.Balances {
			if err := putBalance(tx, acct, bal); err != nil {
				return err
			}
		}
		for acct, active := range snap.Minters {
			if err := putMinter(tx, acct, active); err != nil {
				return err
			}
		}
		for _, r := range snap.MintRecords {
			if err := putRecord(tx, r); err != nil {
				return err
			}
		}
		return putConfig(tx, snap.Config)
	})
}

// Apply writes one delta in a single bolt transaction. Returns ErrConflict
// if the stored operation counter is not the one preceding the delta.
func (s *StateStore) Apply(_ context.Context, d *domain.Delta) (err error) {
	if d == nil || d.Config.OpCounter == 0 {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("bolt", "apply", time.Since(start).Seconds(), err)
	}()

	return s.db.Update(func(tx *bolt.Tx) error {
		raw := tx.Bucket(configBucket).Get(configKey)
		if raw == nil {
			return storage.ErrNotFound
		}
		var current domain.LedgerConfig
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
		if current.OpCounter+1 != d.Config.OpCounter {
			return storage.ErrConflict
		}

		for acct, bal := range d.Balances {
			if err := putBalance(tx, acct, bal); err != nil {
				return err
			}
		}
		if d.Minter != nil {
			if err := putMinter(tx, d.Minter.Account, d.Minter.Active); err != nil {
				return err
			}
		}
		if d.Record != nil {
			if err := putRecord(tx, *d.Record); err != nil {
				return err
			}
		}
		return putConfig(tx, d.Config)
	})
}

func putConfig(tx *bolt.Tx, cfg domain.LedgerConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := tx.Bucket(configBucket).Put(configKey, raw); err != nil {
		return fmt.Errorf("put config: %w", err)
	}
	return nil
}

func putBalance(tx *bolt.Tx, acct domain.Account, bal int64) error {
	if acct.IsZero() {
		return storage.ErrInvalidInput
	}
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(bal))
	if err := tx.Bucket(balanceBucket).Put([]byte(acct), v); err != nil {
		return fmt.Errorf("put balance: %w", err)
	}
	return nil
}

func putMinter(tx *bolt.Tx, acct domain.Account, active bool) error {
	if acct.IsZero() {
		return storage.ErrInvalidInput
	}
	v := []byte{0}
	if active {
		v[0] = 1
	}
	if err := tx.Bucket(minterBucket).Put([]byte(acct), v); err != nil {
		return fmt.Errorf("put minter: %w", err)
	}
	return nil
}

// putRecord appends a mint record. Keys are big-endian ids so ForEach
// iterates in sequence order.
func putRecord(tx *bolt.Tx, r domain.MintRecord) error {
	b := tx.Bucket(recordBucket)
	key := recordKey(r.ID)
	if b.Get(key) != nil {
		return storage.ErrDuplicateKey
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode mint record: %w", err)
	}
	if err := b.Put(key, raw); err != nil {
		return fmt.Errorf("put mint record: %w", err)
	}
	return nil
}

func recordKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}
