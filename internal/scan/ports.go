// Package scan extracts transaction drafts from receipt images.
package scan

import (
	"context"

	"mmm/internal/core"
)

// Result is the draft a receipt scan produces. Amount keeps the
// provider's decimal reading; callers convert to cents when building a
// transaction.
type Result struct {
	Merchant string   `json:"merchant"`
	Amount   float64  `json:"amount"`
	Date     string   `json:"date"`
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// SlipScanner reads a receipt image and returns the extracted fields.
type SlipScanner interface {
	Scan(ctx context.Context, image []byte, mimeType string) (Result, error)
}

// FallbackResult is returned whenever a scan fails for any reason, so a
// bad image or provider outage never breaks the entry flow.
func FallbackResult(now core.Date) Result {
	return Result{
		Merchant: "Error Scanning",
		Amount:   0,
		Date:     now.String(),
		Category: core.CategoryOther,
		Items:    []string{},
	}
}
