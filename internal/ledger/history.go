package ledger

import (
	"sort"

	"hadaf/internal/core"
)

// Entry is one transaction's effect on a specific account: the signed delta
// it applied and the running balance immediately after it.
type Entry struct {
	core.Transaction
	Delta   core.Money `json:"change"`
	Balance core.Money `json:"currentBalance"`
}

// History is an account's ordered ledger over a date window.
type History struct {
	// Opening is the running balance just before the first in-window entry:
	// the balance after the last entry dated strictly before the window, or
	// the account's opening balance when nothing precedes it.
	Opening core.Money `json:"openingBalance"`
	Entries []Entry    `json:"entries"`
	Inflow  core.Money `json:"inflow"`
	Outflow core.Money `json:"outflow"`
}

// AccountHistory reconstructs the running-balance ledger of one account and
// returns the entries dated within [from, to]. A zero from or to leaves that
// side of the window open.
//
// All transactions touching the account are ordered by (date, id); the id is
// the tie-break for same-day entries so the order is reproducible across
// runs. The running balance accumulates over the full history, so in-window
// entries carry their true balances, never a window-local recomputation.
func AccountHistory(account core.Account, txs []core.Transaction, from, to core.Date) History {
	related := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.AccountID == account.ID || (tx.ToAccountID == account.ID && tx.ToAccountID != "") {
			related = append(related, tx)
		}
	}
	SortTransactions(related)

	h := History{Opening: account.OpeningBalance}
	running := account.OpeningBalance
	for _, tx := range related {
		var delta int64
		if tx.AccountID == account.ID {
			delta = outgoingDelta(tx)
		} else {
			delta = incomingAmount(tx)
		}
		running.Cents += delta

		if !from.IsZero() && tx.Date.Before(from) {
			h.Opening = running
			continue
		}
		if !to.IsZero() && tx.Date.After(to) {
			continue
		}
		h.Entries = append(h.Entries, Entry{
			Transaction: tx,
			Delta:       core.Money{Cents: delta},
			Balance:     running,
		})
		if delta > 0 {
			h.Inflow.Cents += delta
		} else {
			h.Outflow.Cents -= delta
		}
	}
	return h
}

// SortTransactions orders transactions by date, then lexically by id. This is
// the one total order every balance and ledger computation uses.
func SortTransactions(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if c := txs[i].Date.Compare(txs[j].Date); c != 0 {
			return c < 0
		}
		return txs[i].ID < txs[j].ID
	})
}
