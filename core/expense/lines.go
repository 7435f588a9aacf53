package expense

import (
	"strings"
	"time"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
)

const amountErrorText = "Error al leer el monto de tu mensaje. Recuerda escribirlo en el formato correcto"

// IsExpenseBlock reports whether text has the 4 to 6 newline shape of a dense expense message.
func IsExpenseBlock(text string) bool {
	n := strings.Count(text, "\n")
	return n >= 4 && n <= 6
}

// ParseLines reads the dense expense grammar:
//
//	name
//	payment method
//	[currency]
//	amount
//	category
//	[subcategory]
//	date
//
// The amount must be the first numeric line and sit at index 2 or 3.
func ParseLines(text string, now time.Time) (Draft, error) {
	lines := splitLines(text)
	if len(lines) < 4 {
		return Draft{}, apperr.User(amountErrorText)
	}

	amountIdx := -1
	for i, line := range lines {
		if _, ok := parseAmount(line); ok {
			amountIdx = i
			break
		}
	}
	if amountIdx != 2 && amountIdx != 3 {
		return Draft{}, apperr.User(amountErrorText)
	}
	amount, _ := parseAmount(lines[amountIdx])

	currency := DefaultCurrency
	if amountIdx == 3 {
		currency = strings.ToUpper(lines[2])
	}

	categoryIdx := amountIdx + 1
	dateIdx := len(lines) - 1
	if categoryIdx >= dateIdx {
		return Draft{}, apperr.User("Falta la categoria o la fecha del gasto")
	}

	date, err := ParseDate(lines[dateIdx], now)
	if err != nil {
		return Draft{}, err
	}

	var subcategory string
	if amountIdx+3 == dateIdx {
		subcategory = lines[dateIdx-1]
	}

	d := Draft{
		Name:          lines[0],
		PaymentMethod: lines[1],
		Currency:      currency,
		Amount:        amount,
		Category:      lines[categoryIdx],
		Subcategory:   subcategory,
		Date:          date,
	}
	if err := d.Validate(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimSpace(l)
	}
	return out
}
