// Package storage is the SQLite backend of the repository ports.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hadaf/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// The single-writer model of the engine maps onto a single connection.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, currency, opening_balance_cents FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Kind, &a.Currency, &a.OpeningBalance.Cents); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, kind, currency, opening_balance_cents)
		 SELECT ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM accounts WHERE id = ?)`,
		a.ID, a.Name, a.Kind, a.Currency, a.OpeningBalance.Cents, a.ID)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: account %s", core.ErrDuplicateID, a.ID)
	}
	return nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, kind = ?, currency = ?, opening_balance_cents = ? WHERE id = ?`,
		a.Name, a.Kind, a.Currency, a.OpeningBalance.Cents, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	if id == core.DefaultAccountID {
		return core.ErrDefaultAccount
	}

	var referenced bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE account_id = ? OR to_account_id = ?)`,
		id, id).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("check account references: %w", err)
	}
	if referenced {
		return core.ErrAccountInUse
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, amount_cents, kind, account_id, to_account_id, target_amount_cents,
		        category, note, is_recurring
		 FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, amount_cents, kind, account_id, to_account_id,
		                           target_amount_cents, category, note, is_recurring)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM transactions WHERE id = ?)`,
		t.ID, t.Date.String(), t.Amount.Cents, t.Kind, t.AccountID,
		nullString(t.ToAccountID), nullCents(t.TargetAmount), t.Category, t.Note,
		boolToInt(t.Recurring), t.ID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", core.ErrDuplicateID, t.ID)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", t.ID,
		"kind", string(t.Kind),
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET date = ?, amount_cents = ?, kind = ?, account_id = ?, to_account_id = ?,
		     target_amount_cents = ?, category = ?, note = ?
		 WHERE id = ?`,
		t.Date.String(), t.Amount.Cents, t.Kind, t.AccountID,
		nullString(t.ToAccountID), nullCents(t.TargetAmount), t.Category, t.Note, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListRecurringRules(ctx context.Context) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, category, kind, account_id, frequency,
		        start_date, next_due_date, note, is_active
		 FROM recurring_rules`)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringRule
	for rows.Next() {
		var (
			rule              core.RecurringRule
			startStr, nextStr string
			active            int
		)
		if err := rows.Scan(&rule.ID, &rule.Amount.Cents, &rule.Category, &rule.Kind,
			&rule.AccountID, &rule.Frequency, &startStr, &nextStr, &rule.Note, &active); err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		if rule.StartDate, err = core.ParseDate(startStr); err != nil {
			return nil, fmt.Errorf("rule %s start date: %w", rule.ID, err)
		}
		if rule.NextDue, err = core.ParseDate(nextStr); err != nil {
			return nil, fmt.Errorf("rule %s next due date: %w", rule.ID, err)
		}
		rule.Active = active != 0
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddRecurringRule(ctx context.Context, rule core.RecurringRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_rules (id, amount_cents, category, kind, account_id, frequency,
		                              start_date, next_due_date, note, is_active)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM recurring_rules WHERE id = ?)`,
		rule.ID, rule.Amount.Cents, rule.Category, rule.Kind, rule.AccountID, rule.Frequency,
		rule.StartDate.String(), rule.NextDue.String(), rule.Note, boolToInt(rule.Active), rule.ID)
	if err != nil {
		return fmt.Errorf("insert recurring rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: rule %s", core.ErrDuplicateID, rule.ID)
	}
	return nil
}

func (r *SQLiteRepository) UpdateRuleNextDue(ctx context.Context, id string, next core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_rules SET next_due_date = ? WHERE id = ?`, next.String(), id)
	if err != nil {
		return fmt.Errorf("update rule next due: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrRuleNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteRecurringRule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrRuleNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetSettings(ctx context.Context) (core.Settings, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT document FROM settings WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	var s core.Settings
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return core.Settings{}, fmt.Errorf("parse settings document: %w", err)
	}
	return s.Normalize(), nil
}

func (r *SQLiteRepository) PutSettings(ctx context.Context, s core.Settings) error {
	doc, err := json.Marshal(s.Normalize())
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO settings (id, document) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET document = excluded.document`, string(doc))
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

// ReplaceAll swaps the full data set inside one SQL transaction: either every
// table is replaced or the rollback leaves the store untouched.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, accounts []core.Account, txs []core.Transaction, rules []core.RecurringRule) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer dbTx.Rollback()

	for _, table := range []string{"transactions", "recurring_rules", "accounts"} {
		if _, err := dbTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, a := range accounts {
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO accounts (id, name, kind, currency, opening_balance_cents) VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.Name, a.Kind, a.Currency, a.OpeningBalance.Cents); err != nil {
			return fmt.Errorf("import account %s: %w", a.ID, err)
		}
	}
	for _, t := range txs {
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO transactions (id, date, amount_cents, kind, account_id, to_account_id,
			                           target_amount_cents, category, note, is_recurring)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Date.String(), t.Amount.Cents, t.Kind, t.AccountID,
			nullString(t.ToAccountID), nullCents(t.TargetAmount), t.Category, t.Note,
			boolToInt(t.Recurring)); err != nil {
			return fmt.Errorf("import transaction %s: %w", t.ID, err)
		}
	}
	for _, rule := range rules {
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO recurring_rules (id, amount_cents, category, kind, account_id, frequency,
			                              start_date, next_due_date, note, is_active)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rule.ID, rule.Amount.Cents, rule.Category, rule.Kind, rule.AccountID, rule.Frequency,
			rule.StartDate.String(), rule.NextDue.String(), rule.Note, boolToInt(rule.Active)); err != nil {
			return fmt.Errorf("import recurring rule %s: %w", rule.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.InfoContext(ctx, "Data set replaced",
		"accounts", len(accounts),
		"transactions", len(txs),
		"rules", len(rules))
	return nil
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t            core.Transaction
		dateStr      string
		toAccount    sql.NullString
		targetAmount sql.NullInt64
		recurring    int
	)
	if err := rows.Scan(&t.ID, &dateStr, &t.Amount.Cents, &t.Kind, &t.AccountID,
		&toAccount, &targetAmount, &t.Category, &t.Note, &recurring); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s date: %w", t.ID, err)
	}
	t.Date = date
	t.ToAccountID = toAccount.String
	if targetAmount.Valid {
		t.TargetAmount = core.Money{Cents: targetAmount.Int64}
	}
	t.Recurring = recurring != 0
	return t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullCents(m core.Money) any {
	if m.Cents == 0 {
		return nil
	}
	return m.Cents
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
