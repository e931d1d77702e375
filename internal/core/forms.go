package core

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Form length limits.
const (
	MaxCategoryNameLength      = 100
	MaxPaymentMethodNameLength = 100
	MaxPaymentMethodAliasLen   = 50
	MaxTagNameLength           = 30
)

type (
	CategoryInput struct {
		Name     string `validate:"required,max=100" label:"Name"`
		Color    string `validate:"omitempty,hexcolor6" label:"Color"`
		Icon     string `label:"Icon"`
		ParentID string `label:"Parent"`
	}

	// CategoryUpdate is a partial update; nil fields are left untouched.
	CategoryUpdate struct {
		Name  *string
		Color *string
		Icon  *string
	}

	PaymentMethodInput struct {
		Type           PaymentMethodType `validate:"required,payment_type" label:"Type"`
		Name           string            `validate:"required,max=100" label:"Name"`
		Alias          string            `validate:"max=50" label:"Alias"`
		LastFourDigits string            `validate:"omitempty,last_four" label:"Last four digits"`
		CardNetwork    string            `label:"Card network"`
		BankName       string            `label:"Bank name"`
		Provider       string            `label:"Provider"`
		IsDefault      bool
		Color          string `validate:"omitempty,hexcolor6" label:"Color"`
		Icon           string `label:"Icon"`
	}

	PaymentMethodUpdate struct {
		Type           *PaymentMethodType
		Name           *string
		Alias          *string
		LastFourDigits *string
		CardNetwork    *string
		BankName       *string
		Provider       *string
		IsDefault      *bool
		Color          *string
		Icon           *string
	}

	TagInput struct {
		Name  string `validate:"required,max=30" label:"Name"`
		Color string `validate:"omitempty,hexcolor6" label:"Color"`
	}

	TagUpdate struct {
		Name  *string
		Color *string
	}
)

var (
	hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	lastFourRe = regexp.MustCompile(`^\d{4}$`)

	formValidator     *validator.Validate
	formValidatorOnce sync.Once
)

func forms() *validator.Validate {
	formValidatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
			return hexColorRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("last_four", func(fl validator.FieldLevel) bool {
			return lastFourRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("payment_type", func(fl validator.FieldLevel) bool {
			return PaymentMethodType(fl.Field().String()).Valid()
		})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if label := fld.Tag.Get("label"); label != "" {
				return label
			}
			return fld.Name
		})
		formValidator = v
	})
	return formValidator
}

// ValidateCategoryForm returns the problems with a category form, if any.
func ValidateCategoryForm(in CategoryInput) []string {
	in.Name = strings.TrimSpace(in.Name)
	return validateForm(in)
}

func ValidatePaymentMethodForm(in PaymentMethodInput) []string {
	in.Name = strings.TrimSpace(in.Name)
	return validateForm(in)
}

func ValidateTagForm(in TagInput) []string {
	in.Name = strings.TrimSpace(in.Name)
	return validateForm(in)
}

func validateForm(form any) []string {
	msgs := []string{}
	err := forms().Struct(form)
	if err == nil {
		return msgs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return append(msgs, err.Error())
	}
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return msgs
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "hexcolor6":
		return fmt.Sprintf("%s must be a hex color like #FF6B6B", fe.Field())
	case "last_four":
		return fmt.Sprintf("%s must be exactly 4 digits", fe.Field())
	case "payment_type":
		return fmt.Sprintf("%s must be one of cash, credit_card, debit_card, bank_transfer, digital_wallet, other", fe.Field())
	default:
		return fmt.Sprintf("%s failed validation for '%s'", fe.Field(), fe.Tag())
	}
}
