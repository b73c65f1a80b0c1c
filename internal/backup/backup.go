// Package backup serializes the complete data set to a single JSON document
// and restores it atomically. The document is the interchange format between
// installations regardless of which store backs them.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hadaf/internal/core"
	"hadaf/internal/repo"
)

// SnapshotVersion is stamped on every exported document.
const SnapshotVersion = 2

// ErrBadSnapshot is returned when the document cannot be a data export,
// for example when the accounts collection is missing entirely.
var ErrBadSnapshot = errors.New("not a valid data snapshot")

// Store is the slice of the backend the backup boundary needs.
type Store interface {
	repo.AccountReader
	repo.TransactionReader
	repo.RecurringReader
	repo.SettingsReader
	repo.SettingsWriter
	repo.SnapshotReplacer
}

// Snapshot is the export envelope.
type Snapshot struct {
	Accounts     []core.Account       `json:"accounts"`
	Transactions []core.Transaction   `json:"transactions"`
	Recurring    []core.RecurringRule `json:"recurring"`
	Settings     core.Settings        `json:"settings"`
	Version      int                  `json:"version"`
}

// Export reads the full data set and wraps it in a versioned envelope.
func Export(ctx context.Context, store Store) (Snapshot, error) {
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := store.ListTransactions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list transactions: %w", err)
	}
	rules, err := store.ListRecurringRules(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list recurring rules: %w", err)
	}
	settings, err := store.GetSettings(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get settings: %w", err)
	}
	return Snapshot{
		Accounts:     accounts,
		Transactions: txs,
		Recurring:    rules,
		Settings:     settings,
		Version:      SnapshotVersion,
	}, nil
}

// ExportJSON is Export rendered as an indented document.
func ExportJSON(ctx context.Context, store Store) ([]byte, error) {
	snap, err := Export(ctx, store)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(snap, "", "  ")
}

// snapshotRule mirrors core.RecurringRule but keeps isActive a pointer so
// that documents written before the flag existed restore as active.
type snapshotRule struct {
	ID        string               `json:"id"`
	Amount    core.Money           `json:"amount"`
	Category  string               `json:"category"`
	Kind      core.TransactionKind `json:"type"`
	AccountID string               `json:"accountId"`
	Frequency core.Frequency       `json:"frequency"`
	StartDate core.Date            `json:"startDate"`
	NextDue   core.Date            `json:"nextDueDate"`
	Note      string               `json:"note,omitempty"`
	Active    *bool                `json:"isActive"`
}

type snapshotDoc struct {
	Accounts     []core.Account     `json:"accounts"`
	Transactions []core.Transaction `json:"transactions"`
	Recurring    []snapshotRule     `json:"recurring"`
	Settings     *core.Settings     `json:"settings"`
	Version      int                `json:"version"`
}

// Import replaces the entire data set with the snapshot in data. The swap is
// all-or-nothing: a document that fails to parse or validate leaves the
// store untouched. Collections absent from the document restore as empty,
// except accounts, whose absence marks the document as foreign and returns
// ErrBadSnapshot.
func Import(ctx context.Context, store Store, data []byte) error {
	var probe struct {
		Accounts json.RawMessage `json:"accounts"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if probe.Accounts == nil {
		return fmt.Errorf("%w: missing accounts", ErrBadSnapshot)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	accounts := doc.Accounts
	if err := validateAccounts(accounts); err != nil {
		return err
	}

	txs := doc.Transactions
	if txs == nil {
		txs = []core.Transaction{}
	}
	if err := validateTransactions(txs); err != nil {
		return err
	}

	rules := make([]core.RecurringRule, 0, len(doc.Recurring))
	for _, sr := range doc.Recurring {
		r := core.RecurringRule{
			ID:        sr.ID,
			Amount:    sr.Amount,
			Category:  sr.Category,
			Kind:      sr.Kind,
			AccountID: sr.AccountID,
			Frequency: sr.Frequency,
			StartDate: sr.StartDate,
			NextDue:   sr.NextDue,
			Note:      sr.Note,
			Active:    sr.Active == nil || *sr.Active,
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("recurring rule %q: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	if err := uniqueIDs("recurring rule", ruleIDs(rules)); err != nil {
		return err
	}

	if err := store.ReplaceAll(ctx, accounts, txs, rules); err != nil {
		return fmt.Errorf("replace data set: %w", err)
	}

	settings := core.DefaultSettings()
	if doc.Settings != nil {
		settings = doc.Settings.Normalize()
	}
	if err := store.PutSettings(ctx, settings); err != nil {
		return fmt.Errorf("restore settings: %w", err)
	}
	return nil
}

func validateAccounts(accounts []core.Account) error {
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %q: %w", a.ID, err)
		}
		ids = append(ids, a.ID)
	}
	return uniqueIDs("account", ids)
}

func validateTransactions(txs []core.Transaction) error {
	ids := make([]string, 0, len(txs))
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %q: %w", t.ID, err)
		}
		ids = append(ids, t.ID)
	}
	return uniqueIDs("transaction", ids)
}

func ruleIDs(rules []core.RecurringRule) []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

func uniqueIDs(kind string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s id %q appears twice", ErrBadSnapshot, kind, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
