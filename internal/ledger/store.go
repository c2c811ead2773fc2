// Package ledger holds the in-memory source of truth for transactions and
// groups. All mutation goes through the Store; readers get consistent
// snapshot copies and never observe partial updates.
package ledger

import (
	"fmt"
	"sync"

	"mmm/internal/core"
)

// Snapshot is a consistent read of both collections at a point in time.
// Transactions are in raw collection order (newest inserted first); Groups
// are in display order (insertion order).
type Snapshot struct {
	Transactions []core.Transaction
	Groups       []core.Group
}

type Store struct {
	mu           sync.Mutex
	transactions []core.Transaction
	groups       []core.Group
}

func NewStore() *Store {
	return &Store{}
}

// Reset replaces both collections wholesale, e.g. when hydrating from
// persistence at startup. Loaded records are taken as-is; aggregation is
// defensive about data that bypassed validation.
func (s *Store) Reset(txs []core.Transaction, groups []core.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = copyTransactions(txs)
	s.groups = copyGroups(groups)
}

// AddOrReplaceTransaction validates the transaction and either replaces the
// record with the same id in place or prepends a new one. Replace keeps the
// record's position; new records go to the front regardless of their date.
// On failure the store is unchanged.
func (s *Store) AddOrReplaceTransaction(tx core.Transaction) (Snapshot, error) {
	tx = tx.Normalize()
	if err := tx.Validate(); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.Ownership == core.OwnershipGroup && !s.groupExistsLocked(tx.GroupID) {
		return Snapshot{}, fmt.Errorf("%w: %q", core.ErrUnknownGroup, tx.GroupID)
	}

	replaced := false
	for i := range s.transactions {
		if s.transactions[i].ID == tx.ID {
			s.transactions[i] = copyTransaction(tx)
			replaced = true
			break
		}
	}
	if !replaced {
		s.transactions = append([]core.Transaction{copyTransaction(tx)}, s.transactions...)
	}

	return s.snapshotLocked(), nil
}

// AddGroup validates and appends the group. A duplicate id is rejected.
func (s *Store) AddGroup(g core.Group) (Snapshot, error) {
	if err := g.Validate(); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.groupExistsLocked(g.ID) {
		return Snapshot{}, fmt.Errorf("%w: group %q", core.ErrDuplicateID, g.ID)
	}
	s.groups = append(s.groups, g)

	return s.snapshotLocked(), nil
}

// UpdateGroup replaces the group with the matching id in place.
func (s *Store) UpdateGroup(g core.Group) (Snapshot, error) {
	if err := g.Validate(); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.groups {
		if s.groups[i].ID == g.ID {
			s.groups[i] = g
			return s.snapshotLocked(), nil
		}
	}
	return Snapshot{}, fmt.Errorf("%w: group %q", core.ErrNotFound, g.ID)
}

// Snapshot returns a read-only copy of both collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Transactions: copyTransactions(s.transactions),
		Groups:       copyGroups(s.groups),
	}
}

func (s *Store) groupExistsLocked(id string) bool {
	for _, g := range s.groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

func copyTransaction(tx core.Transaction) core.Transaction {
	if tx.Items != nil {
		items := make([]string, len(tx.Items))
		copy(items, tx.Items)
		tx.Items = items
	}
	return tx
}

func copyTransactions(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = copyTransaction(tx)
	}
	return out
}

func copyGroups(groups []core.Group) []core.Group {
	out := make([]core.Group, len(groups))
	copy(out, groups)
	return out
}
