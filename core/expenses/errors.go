package expenses

import "fmt"

// RejectionError is a typed refusal from the expenses service.
// Field rejections are user-facing; INTERNAL_ERROR and UNSPECIFIED are not.
type RejectionError struct {
	Code ErrorCode
	// Value is the offending field as it was submitted.
	Value string
	// Detail is the message the service returned.
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("expenses: add expense rejected: %s: %s", e.Code, e.Detail)
}

// UserMessage returns the localized explanation, or "" for system failures.
func (e *RejectionError) UserMessage() string {
	switch e.Code {
	case CodeInvalidPaymentMethod:
		return fmt.Sprintf("El metodo de pago '%s' no existe", e.Value)
	case CodeInvalidCategory:
		return fmt.Sprintf("La categoria '%s' no existe", e.Value)
	case CodeInvalidSubcategory:
		return fmt.Sprintf("La subcategoria '%s' no existe", e.Value)
	case CodeInvalidDate:
		return fmt.Sprintf("La fecha '%s' no es valida", e.Value)
	case CodeInvalidCurrency:
		return fmt.Sprintf("La moneda '%s' no es valida", e.Value)
	case CodeInvalidPayload:
		return "Los datos del gasto no son validos"
	default:
		return ""
	}
}

// ErrorCode names the rejection in handler summaries.
func (e *RejectionError) ErrorCode() string { return e.Code.String() }
