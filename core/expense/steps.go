package expense

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
)

// SkipToken leaves an optional field empty in the guided flow.
const SkipToken = "-"

// ParseAmountStep reads an amount typed on its own, optionally prefixed by a
// currency code: "6250" or "USD 6250".
func ParseAmountStep(text string) (string, decimal.Decimal, error) {
	fields := strings.Fields(text)
	currency := DefaultCurrency
	var token string
	switch len(fields) {
	case 1:
		token = fields[0]
	case 2:
		currency = strings.ToUpper(fields[0])
		token = fields[1]
	default:
		return "", decimal.Decimal{}, apperr.User(amountErrorText)
	}

	amount, ok := parseAmount(token)
	if !ok {
		return "", decimal.Decimal{}, apperr.Userf("El monto %s no es un numero valido", token)
	}
	if amount.IsNegative() {
		return "", decimal.Decimal{}, apperr.Userf("El monto %s no puede ser negativo", amount.String())
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", decimal.Decimal{}, apperr.Userf("La moneda %s no es valida", fields[0])
		}
	}
	return currency, amount, nil
}

// ParseOptionalStep returns "" for the skip token.
func ParseOptionalStep(text string) string {
	s := strings.TrimSpace(text)
	if s == SkipToken {
		return ""
	}
	return s
}
