package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation messages returned by ValidateExpense.
const (
	MsgVendorRequired        = "Vendor is required"
	MsgAmountPositive        = "Amount must be greater than 0"
	MsgCategoryRequired      = "Category is required"
	MsgPaymentMethodRequired = "Payment method is required"
	MsgDateRequired          = "Date is required"
	MsgCurrencyRequired      = "Currency is required"
)

// ValidateExpense checks the fields a form must supply before submission.
// It never fails; an empty slice means the input is acceptable.
//
// The amount check is written as !(amount > 0) so NaN is rejected while
// +Inf is accepted.
func ValidateExpense(e ExpenseInput) []string {
	errs := []string{}

	if strings.TrimSpace(e.Vendor) == "" {
		errs = append(errs, MsgVendorRequired)
	}
	if !(e.Amount > 0) {
		errs = append(errs, MsgAmountPositive)
	}
	if e.Category.ID == "" {
		errs = append(errs, MsgCategoryRequired)
	}
	if e.PaymentMethod == nil || e.PaymentMethod.ID == "" {
		errs = append(errs, MsgPaymentMethodRequired)
	}
	if e.Date.IsZero() {
		errs = append(errs, MsgDateRequired)
	}
	if e.Currency.Code == "" {
		errs = append(errs, MsgCurrencyRequired)
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		errs = append(errs, fmt.Sprintf("Description must be at most %d characters", MaxDescriptionLength))
	}

	return errs
}
