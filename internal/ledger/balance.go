// Package ledger computes derived views of the transaction history: account
// balances, per-currency aggregates, running-balance histories and category
// totals. Every function is pure; callers hand in a snapshot and get values
// back. Transactions referencing accounts that no longer exist contribute
// nothing rather than failing the computation.
package ledger

import (
	"hadaf/internal/core"
)

// AccountBalance is an account together with its current balance.
type AccountBalance struct {
	core.Account
	Balance core.Money `json:"balance"`
}

// Summary aggregates balances per currency plus income/expense totals for the
// display currency from settings.
type Summary struct {
	TotalIncome  core.Money                   `json:"totalIncome"`
	TotalExpense core.Money                   `json:"totalExpense"`
	Balance      core.Money                   `json:"balance"`
	ByCurrency   map[core.Currency]core.Money `json:"balancesByCurrency"`
}

// AccountBalances computes the current balance of every account:
// opening balance, plus income, minus expenses and outgoing transfers, plus
// incoming transfer legs valued at the received amount.
func AccountBalances(accounts []core.Account, txs []core.Transaction) []AccountBalance {
	out := make([]AccountBalance, len(accounts))
	index := make(map[string]int, len(accounts))
	for i, acc := range accounts {
		out[i] = AccountBalance{Account: acc, Balance: acc.OpeningBalance}
		index[acc.ID] = i
	}
	for _, tx := range txs {
		if i, ok := index[tx.AccountID]; ok {
			out[i].Balance.Cents += outgoingDelta(tx)
		}
		if i, ok := index[tx.ToAccountID]; ok && tx.ToAccountID != "" {
			out[i].Balance.Cents += incomingAmount(tx)
		}
	}
	return out
}

// Summarize computes per-currency aggregate balances. A same-currency
// transfer nets to zero in its currency; a cross-currency transfer moves
// the entered amount out of the source currency and the independently entered
// received amount into the target currency. The two need not match: that
// models the conversion that happened at transfer time, and no reconciling
// gain/loss entry is produced.
//
// TotalIncome and TotalExpense cover only transactions whose source account
// is in the settings' display currency.
func Summarize(accounts []core.Account, txs []core.Transaction, settings core.Settings) Summary {
	settings = settings.Normalize()
	byCurrency := make(map[core.Currency]core.Money, len(core.Currencies()))
	for _, c := range core.Currencies() {
		byCurrency[c] = core.Money{}
	}

	byID := make(map[string]core.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
		m := byCurrency[acc.Currency]
		m.Cents += acc.OpeningBalance.Cents
		byCurrency[acc.Currency] = m
	}

	s := Summary{}
	for _, tx := range txs {
		src, srcOK := byID[tx.AccountID]
		switch tx.Kind {
		case core.Income:
			if !srcOK {
				continue
			}
			addCents(byCurrency, src.Currency, tx.Amount.Cents)
			if src.Currency == settings.DisplayCurrency {
				s.TotalIncome.Cents += tx.Amount.Cents
			}
		case core.Expense:
			if !srcOK {
				continue
			}
			addCents(byCurrency, src.Currency, -tx.Amount.Cents)
			if src.Currency == settings.DisplayCurrency {
				s.TotalExpense.Cents += tx.Amount.Cents
			}
		case core.Transfer:
			if srcOK {
				addCents(byCurrency, src.Currency, -tx.Amount.Cents)
			}
			if dst, ok := byID[tx.ToAccountID]; ok {
				addCents(byCurrency, dst.Currency, incomingAmount(tx))
			}
		}
	}
	s.ByCurrency = byCurrency
	s.Balance = byCurrency[settings.DisplayCurrency]
	return s
}

// LiquidBalances is Summarize restricted to bank and cash accounts. Debts
// tracked against persons are excluded.
func LiquidBalances(accounts []core.Account, txs []core.Transaction) map[core.Currency]core.Money {
	liquid := make(map[core.Currency]core.Money, len(core.Currencies()))
	for _, c := range core.Currencies() {
		liquid[c] = core.Money{}
	}
	for _, ab := range AccountBalances(accounts, txs) {
		if ab.Kind.Liquid() {
			addCents(liquid, ab.Currency, ab.Balance.Cents)
		}
	}
	return liquid
}

// outgoingDelta is the signed effect of a transaction on its source account.
func outgoingDelta(tx core.Transaction) int64 {
	switch tx.Kind {
	case core.Income:
		return tx.Amount.Cents
	case core.Expense, core.Transfer:
		return -tx.Amount.Cents
	default:
		return 0
	}
}

// incomingAmount is the amount credited to a transfer's target account.
// Legacy same-currency transfers may omit the target amount; the entered
// amount applies then.
func incomingAmount(tx core.Transaction) int64 {
	if tx.TargetAmount.Cents != 0 {
		return tx.TargetAmount.Cents
	}
	return tx.Amount.Cents
}

func addCents(m map[core.Currency]core.Money, c core.Currency, cents int64) {
	v := m[c]
	v.Cents += cents
	m[c] = v
}
