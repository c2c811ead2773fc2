// Package memory provides a persistence backend that keeps the ledger blobs
// in process memory, optionally mirrored to JSON files in a data directory.
// It backs tests and local development; durable deployments use the sqlite
// repository.
package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"mmm/internal/core"
	"mmm/internal/persist"
)

type Store struct {
	mu     sync.Mutex
	dir    string // empty means memory only
	txs    []core.Transaction
	groups []core.Group
}

var _ persist.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewFromDir seeds the store from <dir>/mmm_transactions.json and
// <dir>/mmm_groups.json when present and mirrors every save back to them.
// Unreadable or malformed seed files are treated as absent state.
func NewFromDir(dir string) *Store {
	s := &Store{dir: dir}
	s.txs = readJSON[core.Transaction](filepath.Join(dir, persist.TransactionsKey+".json"))
	s.groups = readJSON[core.Group](filepath.Join(dir, persist.GroupsKey+".json"))
	return s
}

func (s *Store) Load(_ context.Context) ([]core.Transaction, []core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := append([]core.Transaction(nil), s.txs...)
	groups := append([]core.Group(nil), s.groups...)
	return txs, groups, nil
}

func (s *Store) Save(_ context.Context, txs []core.Transaction, groups []core.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append([]core.Transaction(nil), txs...)
	s.groups = append([]core.Group(nil), groups...)

	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.dir, persist.TransactionsKey+".json"), s.txs); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.dir, persist.GroupsKey+".json"), s.groups)
}

func readJSON[T any](path string) []T {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func writeJSON[T any](path string, v []T) error {
	if v == nil {
		v = []T{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
