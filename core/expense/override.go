package expense

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
)

// Override keys accepted in a reply to a notification.
const (
	FieldName          = "Nombre"
	FieldPaymentMethod = "Metodo de pago"
	FieldCurrency      = "Moneda"
	FieldAmount        = "Monto"
	FieldDate          = "Fecha"
)

// Seed holds the notification values a reply falls back to.
type Seed struct {
	Vendor        string
	PaymentMethod string
	Amount        decimal.Decimal
	Timestamp     time.Time
}

// ParseOverride reads a reply to a notification:
//
//	category
//	[subcategory]
//
//	Field: value
//	...
//
// Fields not overridden take the seed values; currency falls back to ARS.
func ParseOverride(text string, seed Seed, now time.Time) (Draft, error) {
	lines := splitLines(text)

	category := lines[0]
	subcategory := ""
	start := 2
	if len(lines) > 1 && lines[1] != "" {
		subcategory = lines[1]
		start = 3
	}

	fields, err := overrideFields(lines, start)
	if err != nil {
		return Draft{}, err
	}

	d := Draft{
		Name:          seed.Vendor,
		PaymentMethod: seed.PaymentMethod,
		Currency:      DefaultCurrency,
		Amount:        seed.Amount,
		Category:      category,
		Subcategory:   subcategory,
		Date:          startOfDay(seed.Timestamp),
	}
	if v := fields[FieldName]; v != "" {
		d.Name = v
	}
	if v := fields[FieldPaymentMethod]; v != "" {
		d.PaymentMethod = v
	}
	if v := fields[FieldCurrency]; v != "" {
		d.Currency = strings.ToUpper(v)
	}
	if v := fields[FieldAmount]; v != "" {
		amount, ok := parseAmount(v)
		if !ok {
			return Draft{}, apperr.Userf("El monto %s no es un numero valido", v)
		}
		d.Amount = amount
	}
	if v := fields[FieldDate]; v != "" {
		date, err := ParseDate(v, now)
		if err != nil {
			return Draft{}, err
		}
		d.Date = date
	} else if seed.Timestamp.IsZero() {
		return Draft{}, apperr.User("La notificacion no tiene fecha. Indica la fecha con 'Fecha: dd-mm-aaaa'")
	}

	if err := d.Validate(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func overrideFields(lines []string, start int) (map[string]string, error) {
	fields := make(map[string]string)
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, apperr.Userf("No pude leer la linea '%s'. Usa el formato 'Campo: valor'", line)
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields, nil
}
