package ledger

import (
	"sort"

	"hadaf/internal/core"
)

const (
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Period selects the reporting window relative to a reference date.
type Period string

func (p Period) Valid() bool {
	switch p {
	case PeriodMonth, PeriodYear, PeriodAll:
		return true
	default:
		return false
	}
}

// CategoryTotal is a category name with its summed amount.
type CategoryTotal struct {
	Name  string     `json:"name"`
	Total core.Money `json:"value"`
}

// CategoryTotals sums transactions of the given kind by category, restricted
// to transactions whose source account carries the given currency and whose
// date falls in the period containing today. Results are ordered by
// descending total, name ascending as tie-break.
func CategoryTotals(accounts []core.Account, txs []core.Transaction, kind core.TransactionKind, currency core.Currency, period Period, today core.Date) []CategoryTotal {
	currencyByAccount := make(map[string]core.Currency, len(accounts))
	for _, acc := range accounts {
		currencyByAccount[acc.ID] = acc.Currency
	}

	totals := make(map[string]int64)
	for _, tx := range txs {
		if tx.Kind != kind {
			continue
		}
		cur, ok := currencyByAccount[tx.AccountID]
		if !ok || cur != currency {
			continue
		}
		if !inPeriod(tx.Date, period, today) {
			continue
		}
		totals[tx.Category] += tx.Amount.Cents
	}

	out := make([]CategoryTotal, 0, len(totals))
	for name, cents := range totals {
		out = append(out, CategoryTotal{Name: name, Total: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CategoryHistory lists the transactions of one category, filtered by source
// account currency and date window, newest first. A zero from or to leaves
// that side of the window open. It backs the category drill-down view.
func CategoryHistory(accounts []core.Account, txs []core.Transaction, category string, currency core.Currency, from, to core.Date) []core.Transaction {
	currencyByAccount := make(map[string]core.Currency, len(accounts))
	for _, acc := range accounts {
		currencyByAccount[acc.ID] = acc.Currency
	}

	var out []core.Transaction
	for _, tx := range txs {
		if tx.Category != category {
			continue
		}
		if cur, ok := currencyByAccount[tx.AccountID]; !ok || cur != currency {
			continue
		}
		if !from.IsZero() && tx.Date.Before(from) {
			continue
		}
		if !to.IsZero() && tx.Date.After(to) {
			continue
		}
		out = append(out, tx)
	}
	SortTransactions(out)
	// Newest first for display.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func inPeriod(d core.Date, period Period, today core.Date) bool {
	switch period {
	case PeriodMonth:
		return d.Year == today.Year && d.Month == today.Month
	case PeriodYear:
		return d.Year == today.Year
	default:
		return true
	}
}
