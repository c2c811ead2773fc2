package persist

import (
	"context"

	"mmm/internal/core"
)

// Ports for outbound persistence adapters. The ledger lives in memory; these
// only carry it across restarts, best-effort, last write wins.
type (
	SnapshotLoader interface {
		// Load returns the persisted collections. Absent prior state yields
		// empty collections, not an error.
		Load(ctx context.Context) (txs []core.Transaction, groups []core.Group, err error)
	}

	SnapshotSaver interface {
		// Save persists both collections. Re-saving identical state is
		// harmless.
		Save(ctx context.Context, txs []core.Transaction, groups []core.Group) error
	}

	Store interface {
		SnapshotLoader
		SnapshotSaver
	}
)

// Logical blob names, carried over from the original client-side store.
const (
	TransactionsKey = "mmm_transactions"
	GroupsKey       = "mmm_groups"
)
