package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/crisszkutnik/telegram-bot/core/expense"
)

// NotificationPreamble opens every detected-expense notification. Replies to
// messages starting with it are treated as confirmations.
const NotificationPreamble = "Detectamos el siguiente gasto en la aplicacion"

// Headers for expense confirmations.
const (
	HeaderRegistered = "Se registro exitosamente el siguiente gasto"
	HeaderSaved      = "Se guardo exitosamente el siguiente gasto:"
)

// DetectedExpense is what a notification announces.
type DetectedExpense struct {
	App           string
	Vendor        string
	PaymentMethod string
	Amount        decimal.Decimal
	Date          string
}

// Notification renders the detected-expense message. The result is meant for a formatted send.
func Notification(d DetectedExpense) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n", NotificationPreamble, EscapeValue(d.App))
	writeField(&b, "Nombre", d.Vendor)
	writeField(&b, "Metodo de pago", d.PaymentMethod)
	writeField(&b, "Moneda", expense.DefaultCurrency)
	writeField(&b, "Monto", d.Amount.String())
	writeField(&b, "Fecha", d.Date)
	return strings.TrimSuffix(b.String(), "\n")
}

// ExpenseSummary echoes every field of a submitted draft under header.
func ExpenseSummary(header string, d expense.Draft) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	writeField(&b, "Nombre", d.Name)
	writeField(&b, "Metodo de pago", d.PaymentMethod)
	writeField(&b, "Moneda", d.Currency)
	writeField(&b, "Monto", d.Amount.String())
	writeField(&b, "Categoria", d.Category)
	writeField(&b, "Subcategoria", d.Subcategory)
	writeField(&b, "Fecha", expense.FormatDate(d.Date))
	return strings.TrimSuffix(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "- *__%s:__* %s\n", label, EscapeValue(value))
}
