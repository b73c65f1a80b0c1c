// Package repo declares the ports every storage backend implements. The
// engine and its callers depend only on these interfaces; which concrete
// store sits behind them (SQLite or the flat JSON file) is a factory concern.
package repo

import (
	"context"

	"hadaf/internal/core"
)

type (
	AccountReader interface {
		// ListAccounts returns all accounts in no particular order.
		ListAccounts(ctx context.Context) ([]core.Account, error)
	}

	AccountWriter interface {
		AddAccount(ctx context.Context, a core.Account) error
		UpdateAccount(ctx context.Context, a core.Account) error
		// DeleteAccount refuses the permanent default account
		// (core.ErrDefaultAccount) and accounts still referenced by a
		// transaction as source or transfer target (core.ErrAccountInUse).
		DeleteAccount(ctx context.Context, id string) error
	}

	TransactionReader interface {
		// ListTransactions returns the full transaction history. No ordering
		// is guaranteed; callers sort by (date, id) as needed.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		// AppendTransaction stores a new transaction. Appending an id that
		// already exists returns core.ErrDuplicateID; the scheduler relies on
		// this for idempotent materialization.
		AppendTransaction(ctx context.Context, t core.Transaction) error
		// UpdateTransaction replaces all mutable fields, preserving the id.
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	RecurringReader interface {
		ListRecurringRules(ctx context.Context) ([]core.RecurringRule, error)
	}

	RecurringWriter interface {
		AddRecurringRule(ctx context.Context, r core.RecurringRule) error
		// UpdateRuleNextDue persists the advanced due date of one rule.
		UpdateRuleNextDue(ctx context.Context, id string, next core.Date) error
		// DeleteRecurringRule removes the rule without retracting
		// transactions it already materialized.
		DeleteRecurringRule(ctx context.Context, id string) error
	}

	SettingsReader interface {
		// GetSettings returns the stored preferences, normalized so that
		// fields absent from older data carry their defaults.
		GetSettings(ctx context.Context) (core.Settings, error)
	}

	SettingsWriter interface {
		PutSettings(ctx context.Context, s core.Settings) error
	}

	// SnapshotReplacer swaps the complete data set in one shot. Either all
	// three collections are replaced consistently or the store is left
	// untouched; it backs the import boundary.
	SnapshotReplacer interface {
		ReplaceAll(ctx context.Context, accounts []core.Account, txs []core.Transaction, rules []core.RecurringRule) error
	}
)
