// Package filestore is the flat-file backend: the full data set lives in one
// versioned JSON document, rewritten atomically on every mutation. It is the
// fallback for environments without SQLite and the fixture store for tests.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"hadaf/internal/core"
)

const dataVersion = 2

type envelope struct {
	Version      int                  `json:"version"`
	Accounts     []core.Account       `json:"accounts"`
	Transactions []core.Transaction   `json:"transactions"`
	Recurring    []core.RecurringRule `json:"recurring"`
	Settings     core.Settings        `json:"settings"`
}

type Store struct {
	mu       sync.RWMutex
	filePath string
	accounts []core.Account
	txs      []core.Transaction
	rules    []core.RecurringRule
	settings core.Settings
}

// Open loads the data file at path, creating it with the permanent default
// account when it does not exist yet.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{filePath: path, settings: core.DefaultSettings()}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.accounts = []core.Account{defaultAccount()}
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("initialize data file: %w", err)
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read data file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse data file: %w", err)
	}
	s.accounts = env.Accounts
	s.txs = env.Transactions
	s.rules = env.Recurring
	s.settings = env.Settings.Normalize()
	if len(s.accounts) == 0 {
		s.accounts = []core.Account{defaultAccount()}
	}
	return s, nil
}

func defaultAccount() core.Account {
	return core.Account{
		ID:       core.DefaultAccountID,
		Name:     "Cash Box",
		Kind:     core.AccountCash,
		Currency: core.CurrencyTL,
	}
}

func (s *Store) ListAccounts(context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Account, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

func (s *Store) AddAccount(_ context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.ID == a.ID {
			return fmt.Errorf("%w: account %s", core.ErrDuplicateID, a.ID)
		}
	}
	s.accounts = append(s.accounts, a)
	return s.persistLocked()
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].ID == a.ID {
			s.accounts[i] = a
			return s.persistLocked()
		}
	}
	return core.ErrAccountNotFound
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	if id == core.DefaultAccountID {
		return core.ErrDefaultAccount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.AccountID == id || tx.ToAccountID == id {
			return core.ErrAccountInUse
		}
	}
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			return s.persistLocked()
		}
	}
	return core.ErrAccountNotFound
}

func (s *Store) ListTransactions(context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txs {
		if existing.ID == t.ID {
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, t.ID)
		}
	}
	s.txs = append(s.txs, t)
	return s.persistLocked()
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == t.ID {
			s.txs[i] = t
			return s.persistLocked()
		}
	}
	return core.ErrTransactionNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return s.persistLocked()
		}
	}
	return core.ErrTransactionNotFound
}

func (s *Store) ListRecurringRules(context.Context) ([]core.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RecurringRule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

func (s *Store) AddRecurringRule(_ context.Context, r core.RecurringRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rules {
		if existing.ID == r.ID {
			return fmt.Errorf("%w: rule %s", core.ErrDuplicateID, r.ID)
		}
	}
	s.rules = append(s.rules, r)
	return s.persistLocked()
}

func (s *Store) UpdateRuleNextDue(_ context.Context, id string, next core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules[i].NextDue = next
			return s.persistLocked()
		}
	}
	return core.ErrRuleNotFound
}

func (s *Store) DeleteRecurringRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return s.persistLocked()
		}
	}
	return core.ErrRuleNotFound
}

func (s *Store) GetSettings(context.Context) (core.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Normalize(), nil
}

func (s *Store) PutSettings(_ context.Context, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings.Normalize()
	return s.persistLocked()
}

// ReplaceAll swaps the complete data set. The new state is written to disk
// before the in-memory copy changes, so a failed write leaves the store
// untouched.
func (s *Store) ReplaceAll(_ context.Context, accounts []core.Account, txs []core.Transaction, rules []core.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := envelope{
		Version:      dataVersion,
		Accounts:     accounts,
		Transactions: txs,
		Recurring:    rules,
		Settings:     s.settings,
	}
	if err := writeEnvelope(s.filePath, env); err != nil {
		return err
	}
	s.accounts = accounts
	s.txs = txs
	s.rules = rules
	return nil
}

func (s *Store) persistLocked() error {
	return writeEnvelope(s.filePath, envelope{
		Version:      dataVersion,
		Accounts:     s.accounts,
		Transactions: s.txs,
		Recurring:    s.rules,
		Settings:     s.settings,
	})
}

func writeEnvelope(path string, env envelope) error {
	if env.Accounts == nil {
		env.Accounts = []core.Account{}
	}
	if env.Transactions == nil {
		env.Transactions = []core.Transaction{}
	}
	if env.Recurring == nil {
		env.Recurring = []core.RecurringRule{}
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp data file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
