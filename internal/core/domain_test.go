package core

import (
	"errors"
	"testing"
	"time"
)

func validTransfer() Transaction {
	return Transaction{
		ID:           "t1",
		Date:         NewDate(2024, time.March, 1),
		Amount:       Money{Cents: 10000},
		Kind:         Transfer,
		AccountID:    "acc_src",
		ToAccountID:  "acc_dst",
		TargetAmount: Money{Cents: 3000},
		Category:     TransferCategory,
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{
			name:   "valid transfer",
			mutate: func(*Transaction) {},
		},
		{
			name: "valid expense",
			mutate: func(tx *Transaction) {
				tx.Kind = Expense
				tx.ToAccountID = ""
				tx.TargetAmount = Money{}
				tx.Category = "Food"
			},
		},
		{
			name:    "zero amount",
			mutate:  func(tx *Transaction) { tx.Amount = Money{} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(tx *Transaction) { tx.Amount = Money{Cents: -500} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "self transfer",
			mutate:  func(tx *Transaction) { tx.ToAccountID = tx.AccountID },
			wantErr: ErrSelfTransfer,
		},
		{
			name:    "transfer without target amount",
			mutate:  func(tx *Transaction) { tx.TargetAmount = Money{} },
			wantErr: ErrMissingTarget,
		},
		{
			name:    "transfer without target account",
			mutate:  func(tx *Transaction) { tx.ToAccountID = "" },
			wantErr: ErrMissingTarget,
		},
		{
			name: "expense without category",
			mutate: func(tx *Transaction) {
				tx.Kind = Expense
				tx.ToAccountID = ""
				tx.TargetAmount = Money{}
				tx.Category = "  "
			},
			wantErr: ErrEmptyCategory,
		},
		{
			name:    "missing id",
			mutate:  func(tx *Transaction) { tx.ID = "" },
			wantErr: ErrEmptyID,
		},
		{
			name:    "zero date",
			mutate:  func(tx *Transaction) { tx.Date = Date{} },
			wantErr: ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransfer()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringRuleValidate(t *testing.T) {
	valid := RecurringRule{
		ID:        "r1",
		Amount:    Money{Cents: 2500},
		Category:  "Rent & Housing",
		Kind:      Expense,
		AccountID: DefaultAccountID,
		Frequency: Monthly,
		StartDate: NewDate(2024, time.January, 1),
		NextDue:   NewDate(2024, time.February, 1),
		Active:    true,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	transfer := valid
	transfer.Kind = Transfer
	if !errors.Is(transfer.Validate(), ErrInvalidKind) {
		t.Error("transfer rule should be rejected")
	}

	badFreq := valid
	badFreq.Frequency = "fortnightly"
	if !errors.Is(badFreq.Validate(), ErrInvalidFrequency) {
		t.Error("unknown frequency should be rejected")
	}

	backdated := valid
	backdated.NextDue = NewDate(2023, time.December, 1)
	if backdated.Validate() == nil {
		t.Error("next due before start date should be rejected")
	}
}

func TestAccountValidate(t *testing.T) {
	acc := Account{ID: "a1", Name: "Checking", Kind: AccountBank, Currency: CurrencyUSD}
	if err := acc.Validate(); err != nil {
		t.Fatalf("valid account rejected: %v", err)
	}

	acc.Currency = "GBP"
	if !errors.Is(acc.Validate(), ErrInvalidCurrency) {
		t.Error("unknown currency should be rejected")
	}

	acc = Account{ID: "a1", Name: "", Kind: AccountCash, Currency: CurrencyTL}
	if !errors.Is(acc.Validate(), ErrEmptyName) {
		t.Error("empty name should be rejected")
	}
}

func TestSettingsNormalize(t *testing.T) {
	got := Settings{DisplayCurrency: CurrencyEUR}.Normalize()
	if got.DisplayCurrency != CurrencyEUR {
		t.Errorf("set field overwritten: %s", got.DisplayCurrency)
	}
	if got.DateFormat != DateFormatJalali {
		t.Errorf("DateFormat default = %s", got.DateFormat)
	}
	if got.AppName == "" || len(got.ExpenseCategories) == 0 || len(got.IncomeCategories) == 0 {
		t.Error("unset fields should be defaulted")
	}
}
