package scan

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"mmm/internal/core"
)

// Service wraps a SlipScanner with the fallback contract and a
// stale-response guard: when scans overlap, only the most recently
// started one may deliver a result.
type Service struct {
	scanner SlipScanner
	now     func() time.Time
	seq     atomic.Uint64
}

// ErrStale marks a scan superseded by a newer one.
var ErrStale = staleError{}

type staleError struct{}

func (staleError) Error() string { return "scan superseded by a newer request" }

func NewService(scanner SlipScanner, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{scanner: scanner, now: now}
}

// Scan runs the provider and never returns a provider error: any failure
// becomes the fallback record so the entry flow keeps working. The only
// error returned is ErrStale, when a newer scan started while this one
// was in flight.
func (s *Service) Scan(ctx context.Context, image []byte, mimeType string) (Result, error) {
	token := s.seq.Add(1)

	result, err := s.scanner.Scan(ctx, image, mimeType)
	if err != nil {
		slog.ErrorContext(ctx, "Slip scan failed, using fallback", "error", err)
		result = FallbackResult(core.DateOf(s.now()))
	}

	if s.seq.Load() != token {
		return Result{}, ErrStale
	}

	return s.normalize(result), nil
}

// normalize fills the defaults the provider contract allows to be blank.
func (s *Service) normalize(r Result) Result {
	if r.Date == "" {
		r.Date = core.DateOf(s.now()).String()
	} else if _, err := core.ParseDate(r.Date); err != nil {
		r.Date = core.DateOf(s.now()).String()
	}
	if r.Merchant == "" {
		r.Merchant = "ไม่ระบุร้านค้า"
	}
	if r.Category == "" {
		r.Category = core.CategoryOther
	}
	if r.Items == nil {
		r.Items = []string{}
	}
	return r
}
