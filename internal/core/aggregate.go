package core

import (
	"math"
	"sort"
	"time"
)

// Alert thresholds are fixed policy: a group budget is worth a warning at
// 80% consumption and counts as exceeded at 100%.
const (
	warnRatio     = 0.8
	exceededRatio = 1.0
)

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertExceeded AlertLevel = "exceeded"
)

const (
	GroupFilterAll      GroupFilter = "all"
	GroupFilterPersonal GroupFilter = "personal"
)

const (
	TimeFilterAll   TimeFilter = "all"
	TimeFilterMonth TimeFilter = "month"
)

// dailySeriesLimit caps DailySeries at the most recent distinct dates
// present in the input, not the last calendar days. Gaps stay gaps.
const dailySeriesLimit = 7

type (
	AlertLevel string

	// GroupFilter is "all", "personal", or a concrete group id.
	GroupFilter string

	TimeFilter string

	CategoryAmount struct {
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
	}

	DailyTotal struct {
		Date    string `json:"date"`
		Income  Money  `json:"income"`
		Expense Money  `json:"expense"`
	}
)

// TotalByType sums the amounts of all transactions of the given type.
func TotalByType(txs []Transaction, tt TransactionType) Money {
	var total Money
	for _, t := range txs {
		if t.Type == tt {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Balance is total income minus total expense.
func Balance(txs []Transaction) Money {
	return Money{Cents: TotalByType(txs, TypeIncome).Cents - TotalByType(txs, TypeExpense).Cents}
}

// GroupSpend sums expense transactions attributed to the group.
func GroupSpend(txs []Transaction, groupID string) Money {
	var total Money
	for _, t := range txs {
		if t.Type == TypeExpense && t.GroupID == groupID {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// BudgetRatio is spend divided by budget. Group validation guarantees a
// positive budget, but externally loaded data may bypass it; a budget of
// zero or less always reads as exceeded.
func BudgetRatio(spend, budget Money) float64 {
	if budget.Cents <= 0 {
		return math.Inf(1)
	}
	return float64(spend.Cents) / float64(budget.Cents)
}

// ClassifyAlert maps a budget ratio onto an alert level.
func ClassifyAlert(ratio float64) AlertLevel {
	switch {
	case ratio >= exceededRatio:
		return AlertExceeded
	case ratio >= warnRatio:
		return AlertWarning
	default:
		return AlertNone
	}
}

// CategoryBreakdown sums expense amounts per category, defaulting absent
// categories to "Other". Output order is first-occurrence order so chart
// legends stay stable across recomputations.
func CategoryBreakdown(txs []Transaction) []CategoryAmount {
	totals := make(map[string]int64)
	var order []string
	for _, t := range txs {
		if t.Type != TypeExpense {
			continue
		}
		cat := t.CategoryOrOther()
		if _, seen := totals[cat]; !seen {
			order = append(order, cat)
		}
		totals[cat] += t.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(order))
	for _, cat := range order {
		out = append(out, CategoryAmount{Name: cat, Amount: Money{Cents: totals[cat]}})
	}
	return out
}

// DailySeries buckets all transactions by calendar date, summing income and
// expense separately, sorted ascending and truncated to the most recent
// seven distinct dates present.
func DailySeries(txs []Transaction) []DailyTotal {
	buckets := make(map[string]*DailyTotal)
	for _, t := range txs {
		key := t.Date.String()
		b, ok := buckets[key]
		if !ok {
			b = &DailyTotal{Date: key}
			buckets[key] = b
		}
		if t.Type == TypeIncome {
			b.Income = b.Income.Add(t.Amount)
		} else {
			b.Expense = b.Expense.Add(t.Amount)
		}
	}
	out := make([]DailyTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if len(out) > dailySeriesLimit {
		out = out[len(out)-dailySeriesLimit:]
	}
	return out
}

// FilterView narrows transactions by group and time and returns them sorted
// by date descending. The sort is stable: same-date entries keep their
// collection order. The month filter compares against the injected now so
// the function stays deterministic under test.
func FilterView(txs []Transaction, gf GroupFilter, tf TimeFilter, now time.Time) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		switch gf {
		case GroupFilterAll, "":
		case GroupFilterPersonal:
			if t.Ownership != OwnershipPersonal {
				continue
			}
		default:
			// A concrete id matches on the reference alone.
			if t.GroupID != string(gf) {
				continue
			}
		}
		if tf == TimeFilterMonth && !t.Date.SameMonth(now) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out
}

// RecentTransactions returns the n most recent transactions by date,
// same-date ties kept in collection order.
func RecentTransactions(txs []Transaction, n int) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
