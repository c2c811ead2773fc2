// Package worker writes point-in-time ledger backups.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mmm/internal/amqp"
	"mmm/internal/core"
	"mmm/internal/persist"
)

// backupFile is the on-disk shape of one backup.
type backupFile struct {
	TakenAt      time.Time          `json:"takenAt"`
	Transactions []core.Transaction `json:"transactions"`
	Groups       []core.Group       `json:"groups"`
}

// BackupWorker snapshots the persisted ledger to timestamped JSON files.
// It runs on two triggers: AMQP change messages and a periodic ticker.
type BackupWorker struct {
	loader    persist.SnapshotLoader
	backupDir string
	now       func() time.Time
}

func NewBackupWorker(loader persist.SnapshotLoader, backupDir string) *BackupWorker {
	return &BackupWorker{
		loader:    loader,
		backupDir: backupDir,
		now:       time.Now,
	}
}

// HandleChangeMessage backs up the ledger after a mutation elsewhere.
func (w *BackupWorker) HandleChangeMessage(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change message",
		"collection", msg.Collection,
		"count", msg.Count,
		"timestamp", msg.Timestamp)

	path, err := w.Backup(ctx)
	if err != nil {
		return fmt.Errorf("backup after change: %w", err)
	}

	slog.InfoContext(ctx, "Wrote ledger backup", "path", path, "trigger", msg.Collection)
	return nil
}

// RunPeriodic writes a backup every interval until the context is
// cancelled. Failures are logged and the ticker keeps going.
func (w *BackupWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Started periodic backups", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic backups", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			path, err := w.Backup(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Periodic backup failed", "error", err)
				continue
			}
			slog.InfoContext(ctx, "Wrote ledger backup", "path", path, "trigger", "ticker")
		}
	}
}

// Backup loads the current snapshot and writes it to a new file. The
// returned path names the file written.
func (w *BackupWorker) Backup(ctx context.Context) (string, error) {
	txs, groups, err := w.loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load ledger: %w", err)
	}

	taken := w.now().UTC()
	payload, err := json.MarshalIndent(backupFile{
		TakenAt:      taken,
		Transactions: txs,
		Groups:       groups,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(w.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("mmm_backup_%s.json", taken.Format("20060102T150405"))
	path := filepath.Join(w.backupDir, name)

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write backup file: %w", err)
	}

	return path, nil
}
