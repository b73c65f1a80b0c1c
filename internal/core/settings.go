package core

const (
	DateFormatGregorian DateFormat = "gregorian"
	DateFormatJalali    DateFormat = "jalali"
)

type DateFormat string

// Settings carries the user preferences that reports and the scheduler need.
// It is an explicit value passed into every call that uses it; there is no
// ambient global settings state.
type Settings struct {
	AppName           string     `json:"appName"`
	DisplayCurrency   Currency   `json:"currency"`
	DateFormat        DateFormat `json:"dateFormat"`
	ExpenseCategories []string   `json:"expenseCategories"`
	IncomeCategories  []string   `json:"incomeCategories"`
}

func DefaultSettings() Settings {
	return Settings{
		AppName:         "Hadaf",
		DisplayCurrency: CurrencyTL,
		DateFormat:      DateFormatJalali,
		ExpenseCategories: []string{
			"Food", "Rent & Housing", "Transport", "Entertainment",
			"Health", "Education", "Clothing", "Other",
		},
		IncomeCategories: []string{
			"Salary", "Bonus", "Bank Interest", "Asset Sale", "Gift", "Other",
		},
	}
}

// Normalize fills every unset field with its default, independently of the
// others. Partial settings documents from older exports stay valid.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.AppName == "" {
		s.AppName = def.AppName
	}
	if !s.DisplayCurrency.Valid() {
		s.DisplayCurrency = def.DisplayCurrency
	}
	if s.DateFormat != DateFormatGregorian && s.DateFormat != DateFormatJalali {
		s.DateFormat = def.DateFormat
	}
	if len(s.ExpenseCategories) == 0 {
		s.ExpenseCategories = def.ExpenseCategories
	}
	if len(s.IncomeCategories) == 0 {
		s.IncomeCategories = def.IncomeCategories
	}
	return s
}
