// Package storage persists the ledger as two JSON blobs in a sqlite table,
// keyed by their logical names. Both blobs are written in one database
// transaction so a loader never sees a half-updated pair.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mmm/internal/core"
	"mmm/internal/persist"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ persist.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements persist.SnapshotLoader. Missing blobs read as empty
// collections.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Transaction, []core.Group, error) {
	var txs []core.Transaction
	if err := r.loadBlob(ctx, persist.TransactionsKey, &txs); err != nil {
		return nil, nil, fmt.Errorf("load transactions blob: %w", err)
	}

	var groups []core.Group
	if err := r.loadBlob(ctx, persist.GroupsKey, &groups); err != nil {
		return nil, nil, fmt.Errorf("load groups blob: %w", err)
	}

	return txs, groups, nil
}

// Save implements persist.SnapshotSaver. Last write wins.
func (r *SQLiteRepository) Save(ctx context.Context, txs []core.Transaction, groups []core.Group) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	if groups == nil {
		groups = []core.Group{}
	}

	txPayload, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}
	groupPayload, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("marshal groups: %w", err)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer dbTx.Rollback()

	if err := upsertBlob(ctx, dbTx, persist.TransactionsKey, txPayload); err != nil {
		return fmt.Errorf("save transactions blob: %w", err)
	}
	if err := upsertBlob(ctx, dbTx, persist.GroupsKey, groupPayload); err != nil {
		return fmt.Errorf("save groups blob: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) loadBlob(ctx context.Context, name string, out any) error {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM ledger_blobs WHERE name = ?`, name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(payload), out)
}

func upsertBlob(ctx context.Context, dbTx *sql.Tx, name string, payload []byte) error {
	_, err := dbTx.ExecContext(ctx, `
		INSERT INTO ledger_blobs (name, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`, name, string(payload))
	return err
}
