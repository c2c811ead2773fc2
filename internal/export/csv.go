// Package export renders filtered transaction listings as CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"mmm/internal/core"
)

// utf8BOM keeps Excel from misreading Thai merchant names.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{"Date", "Merchant", "Amount", "Type", "Category", "Ownership", "Group Name"}

// WriteCSV renders the transactions in their given order. Group names are
// resolved from groups; personal rows show "-" and an unresolvable group
// reference shows an empty name.
func WriteCSV(txs []core.Transaction, groups []core.Group) ([]byte, error) {
	names := make(map[string]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, tx := range txs {
		groupName := "-"
		if tx.GroupID != "" {
			groupName = names[tx.GroupID]
		}

		category := tx.Category
		if category == "" {
			category = "-"
		}

		record := []string{
			tx.Date.String(),
			tx.Merchant,
			tx.Amount.DecimalString(),
			string(tx.Type),
			category,
			string(tx.Ownership),
			groupName,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// Filename builds the download name for an export taken at the given time.
func Filename(now time.Time) string {
	return fmt.Sprintf("mmm_report_%s.csv", core.DateOf(now).String())
}
