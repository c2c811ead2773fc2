package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"mmm/internal/amqp"
	"mmm/internal/core"
	"mmm/internal/ledger"
	"mmm/internal/persist"
)

// LedgerService orchestrates ledger mutations across the in-memory store,
// the persistence backend and AMQP change notifications.
type LedgerService struct {
	store      *ledger.Store
	persistor  persist.Store
	amqpClient *amqp.Client
}

func NewLedgerService(store *ledger.Store, persistor persist.Store, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		store:      store,
		persistor:  persistor,
		amqpClient: amqpClient,
	}
}

// LoadInitial hydrates the store from the persistence backend.
func (s *LedgerService) LoadInitial(ctx context.Context) error {
	txs, groups, err := s.persistor.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	s.store.Reset(txs, groups)
	slog.InfoContext(ctx, "Hydrated ledger",
		"transactions", len(txs),
		"groups", len(groups))
	return nil
}

// SaveTransaction inserts or replaces a transaction. A missing id is
// assigned before the transaction reaches the store. The returned record is
// the normalized form the store keeps, not the caller's input.
func (s *LedgerService) SaveTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx = tx.Normalize()

	snap, err := s.store.AddOrReplaceTransaction(tx)
	if err != nil {
		return core.Transaction{}, err
	}

	s.persistAndNotify(ctx, snap, amqp.CollectionTransactions, len(snap.Transactions))
	return tx, nil
}

// CreateGroup appends a new group to the ledger.
func (s *LedgerService) CreateGroup(ctx context.Context, g core.Group) (core.Group, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	snap, err := s.store.AddGroup(g)
	if err != nil {
		return core.Group{}, err
	}

	s.persistAndNotify(ctx, snap, amqp.CollectionGroups, len(snap.Groups))
	return g, nil
}

// UpdateGroup replaces an existing group in place.
func (s *LedgerService) UpdateGroup(ctx context.Context, g core.Group) (core.Group, error) {
	snap, err := s.store.UpdateGroup(g)
	if err != nil {
		return core.Group{}, err
	}

	s.persistAndNotify(ctx, snap, amqp.CollectionGroups, len(snap.Groups))
	return g, nil
}

// Snapshot returns an isolated copy of the current ledger state.
func (s *LedgerService) Snapshot() ledger.Snapshot {
	return s.store.Snapshot()
}

// persistAndNotify saves the snapshot and publishes a change message.
// The in-memory store stays authoritative: neither failure rolls the
// mutation back.
func (s *LedgerService) persistAndNotify(ctx context.Context, snap ledger.Snapshot, collection string, count int) {
	if err := s.persistor.Save(ctx, snap.Transactions, snap.Groups); err != nil {
		slog.ErrorContext(ctx, "Failed to persist ledger",
			"collection", collection, "error", err)
	}

	if s.amqpClient == nil {
		return
	}

	if err := s.amqpClient.PublishLedgerChange(ctx, collection, count); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"collection", collection, "error", err)
	}
}

// Close releases the persistence backend and AMQP connection.
func (s *LedgerService) Close() error {
	var errs []error

	if closer, ok := s.persistor.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("persist: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
