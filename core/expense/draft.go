// Package expense turns line-delimited chat text into expense drafts.
package expense

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
)

// DefaultCurrency applies when a message carries no currency code.
const DefaultCurrency = "ARS"

// Draft is an expense extracted from a single message, not yet submitted upstream.
type Draft struct {
	Name          string          `validate:"required"`
	PaymentMethod string          `validate:"required"`
	Currency      string          `validate:"required,alpha"`
	Amount        decimal.Decimal `validate:"-"`
	Category      string          `validate:"required"`
	Subcategory   string
	Date          time.Time `validate:"required"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func draftValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

var fieldLabels = map[string]string{
	"Name":          "el nombre",
	"PaymentMethod": "el metodo de pago",
	"Currency":      "la moneda",
	"Category":      "la categoria",
	"Date":          "la fecha",
}

// Validate checks the draft invariants and reports the first violation as a user error.
func (d Draft) Validate() error {
	if d.Amount.IsNegative() {
		return apperr.Userf("El monto %s no puede ser negativo", d.Amount.String())
	}
	err := draftValidator().Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		label, ok := fieldLabels[verrs[0].Field()]
		if !ok {
			label = strings.ToLower(verrs[0].Field())
		}
		return apperr.WrapUser("Falta "+label+" del gasto o no es valido", err)
	}
	return err
}

// Trimmed returns a copy with every string field trimmed, as sent upstream.
func (d Draft) Trimmed() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.PaymentMethod = strings.TrimSpace(d.PaymentMethod)
	d.Currency = strings.TrimSpace(d.Currency)
	d.Category = strings.TrimSpace(d.Category)
	d.Subcategory = strings.TrimSpace(d.Subcategory)
	return d
}

// parseAmount accepts only tokens that are entirely a number.
func parseAmount(token string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(token)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
