package core

import (
	"errors"
	"time"
)

const (
	PaymentCash          PaymentMethodType = "cash"
	PaymentCreditCard    PaymentMethodType = "credit_card"
	PaymentDebitCard     PaymentMethodType = "debit_card"
	PaymentBankTransfer  PaymentMethodType = "bank_transfer"
	PaymentDigitalWallet PaymentMethodType = "digital_wallet"
	PaymentOther         PaymentMethodType = "other"
)

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// MaxCategoryDepth bounds how many levels a category chain may have, root included.
const MaxCategoryDepth = 3

// MaxDescriptionLength is the longest accepted expense description.
const MaxDescriptionLength = 255

type (
	PaymentMethodType string

	Theme string

	Currency struct {
		Code   string
		Symbol string
		Name   string
	}

	Category struct {
		ID       string
		Name     string
		Color    string
		Icon     string
		ParentID string // empty for root categories
	}

	PaymentMethod struct {
		ID             string
		Type           PaymentMethodType
		Name           string
		Alias          string
		LastFourDigits string
		CardNetwork    string
		BankName       string
		Provider       string
		IsDefault      bool
		IsActive       bool
		Color          string
		Icon           string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	Tag struct {
		ID         string
		Name       string
		Color      string
		UsageCount int
		CreatedAt  time.Time
	}

	Vendor struct {
		Name       string
		UsageCount int
	}

	Expense struct {
		ID            string
		Amount        float64
		Description   string
		Vendor        string
		Category      Category
		Date          time.Time
		Currency      Currency
		PaymentMethod *PaymentMethod
		Tags          []Tag
		Location      string
		Notes         string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// ExpenseInput carries the caller-supplied fields of a new expense.
	ExpenseInput struct {
		Amount        float64
		Description   string
		Vendor        string
		Category      Category
		Date          time.Time
		Currency      Currency
		PaymentMethod *PaymentMethod
		Tags          []Tag
		Location      string
		Notes         string
	}

	// ExpenseUpdate is a partial update; nil fields are left untouched.
	// An empty PaymentMethodID clears the payment method.
	ExpenseUpdate struct {
		Amount          *float64
		Description     *string
		Vendor          *string
		CategoryID      *string
		Date            *time.Time
		CurrencyCode    *string
		PaymentMethodID *string
		TagIDs          *[]string
		Location        *string
		Notes           *string
	}

	UserPreferences struct {
		DefaultCurrency Currency
		Theme           Theme
		Language        string
		DateFormat      string
		FirstDayOfWeek  int // 0 = Sunday
	}

	UserPreferencesUpdate struct {
		DefaultCurrency *Currency
		Theme           *Theme
		Language        *string
		DateFormat      *string
		FirstDayOfWeek  *int
	}

	DateRange struct {
		Start time.Time
		End   time.Time
	}

	ExpenseFilter struct {
		Categories     []string
		DateRange      *DateRange
		MinAmount      *float64
		MaxAmount      *float64
		SearchText     string
		PaymentMethods []string
		Tags           []string
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
)

// IsEmpty reports whether the update touches no field.
func (u ExpenseUpdate) IsEmpty() bool {
	return u.Amount == nil && u.Description == nil && u.Vendor == nil &&
		u.CategoryID == nil && u.Date == nil && u.CurrencyCode == nil &&
		u.PaymentMethodID == nil && u.TagIDs == nil && u.Location == nil && u.Notes == nil
}

// Apply returns a copy of p with the update's fields merged in.
func (u UserPreferencesUpdate) Apply(p UserPreferences) UserPreferences {
	if u.DefaultCurrency != nil {
		p.DefaultCurrency = *u.DefaultCurrency
	}
	if u.Theme != nil {
		p.Theme = *u.Theme
	}
	if u.Language != nil {
		p.Language = *u.Language
	}
	if u.DateFormat != nil {
		p.DateFormat = *u.DateFormat
	}
	if u.FirstDayOfWeek != nil {
		p.FirstDayOfWeek = *u.FirstDayOfWeek
	}
	return p
}

// Valid reports whether t is one of the known payment method types.
func (t PaymentMethodType) Valid() bool {
	switch t {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentBankTransfer, PaymentDigitalWallet, PaymentOther:
		return true
	default:
		return false
	}
}

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	default:
		return false
	}
}

// Ptr returns a pointer to v. Handy for building partial updates.
func Ptr[T any](v T) *T {
	return &v
}
