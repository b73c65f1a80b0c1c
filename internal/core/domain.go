package core

import (
	"errors"
	"strings"
)

const (
	CurrencyTL    Currency = "TL"
	CurrencyUSD   Currency = "USD"
	CurrencyEUR   Currency = "EUR"
	CurrencyTOMAN Currency = "TOMAN"
)

const (
	AccountBank   AccountKind = "bank"
	AccountCash   AccountKind = "cash"
	AccountPerson AccountKind = "person"
)

const (
	Expense  TransactionKind = "expense"
	Income   TransactionKind = "income"
	Transfer TransactionKind = "transfer"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// TransferCategory is the fixed category label carried by transfer
// transactions; expense/income transactions carry a free-text category.
const TransferCategory = "Transfer"

// DefaultAccountID identifies the permanent default account. It is created
// by every backend on first open and can never be deleted.
const DefaultAccountID = "default_cash"

type (
	Currency        string
	AccountKind     string
	TransactionKind string
	Frequency       string

	Account struct {
		ID             string      `json:"id"`
		Name           string      `json:"name"`
		Kind           AccountKind `json:"type"`
		Currency       Currency    `json:"currency"`
		OpeningBalance Money       `json:"initialBalance"`
	}

	Transaction struct {
		ID           string          `json:"id"`
		Date         Date            `json:"date"`
		Amount       Money           `json:"amount"`
		Kind         TransactionKind `json:"type"`
		AccountID    string          `json:"accountId"`
		ToAccountID  string          `json:"toAccountId,omitempty"`
		TargetAmount Money           `json:"targetAmount,omitempty"`
		Category     string          `json:"category"`
		Note         string          `json:"note,omitempty"`
		Recurring    bool            `json:"isRecurring,omitempty"`
	}

	RecurringRule struct {
		ID        string          `json:"id"`
		Amount    Money           `json:"amount"`
		Category  string          `json:"category"`
		Kind      TransactionKind `json:"type"`
		AccountID string          `json:"accountId"`
		Frequency Frequency       `json:"frequency"`
		StartDate Date            `json:"startDate"`
		NextDue   Date            `json:"nextDueDate"`
		Note      string          `json:"note,omitempty"`
		Active    bool            `json:"isActive"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEmptyID          = errors.New("empty id")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrSelfTransfer     = errors.New("transfer source and target are the same account")
	ErrMissingTarget    = errors.New("transfer requires a target account and amount")

	// ErrDuplicateID is returned by stores when appending a transaction whose
	// id already exists. The scheduler relies on it for idempotent
	// materialization.
	ErrDuplicateID = errors.New("duplicate transaction id")

	// ErrDefaultAccount is returned when deleting the permanent default
	// account is attempted.
	ErrDefaultAccount = errors.New("default account cannot be deleted")

	// ErrAccountInUse is returned when deleting an account that is still
	// referenced by a transaction as source or transfer target.
	ErrAccountInUse = errors.New("account is referenced by transactions")

	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRuleNotFound        = errors.New("recurring rule not found")
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyTL, CurrencyUSD, CurrencyEUR, CurrencyTOMAN:
		return true
	default:
		return false
	}
}

// Currencies returns the fixed currency set in display order.
func Currencies() []Currency {
	return []Currency{CurrencyTL, CurrencyUSD, CurrencyEUR, CurrencyTOMAN}
}

func (k AccountKind) Valid() bool {
	switch k {
	case AccountBank, AccountCash, AccountPerson:
		return true
	default:
		return false
	}
}

// Liquid reports whether balances of this kind count as spendable money
// (bank and cash, not person-to-person debts).
func (k AccountKind) Liquid() bool {
	return k == AccountBank || k == AccountCash
}

func (k TransactionKind) Valid() bool {
	switch k {
	case Expense, Income, Transfer:
		return true
	default:
		return false
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Kind.Valid() {
		return ErrInvalidKind
	}
	if !a.Currency.Valid() {
		return ErrInvalidCurrency
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrAccountNotFound
	}
	if t.Kind == Transfer {
		if t.ToAccountID == "" || t.TargetAmount.Cents <= 0 {
			return ErrMissingTarget
		}
		if t.ToAccountID == t.AccountID {
			return ErrSelfTransfer
		}
		return nil
	}
	if t.ToAccountID != "" || t.TargetAmount.Cents != 0 {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if r.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	// Transfers are never recurring.
	if r.Kind != Expense && r.Kind != Income {
		return ErrInvalidKind
	}
	if strings.TrimSpace(r.AccountID) == "" {
		return ErrAccountNotFound
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if err := r.StartDate.Validate(); err != nil {
		return err
	}
	if err := r.NextDue.Validate(); err != nil {
		return err
	}
	if r.NextDue.Before(r.StartDate) {
		return errors.New("next due date precedes start date")
	}
	return nil
}
