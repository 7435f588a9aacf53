package handlers

import (
	"context"
	"strings"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
	"github.com/crisszkutnik/telegram-bot/core/expense"
	"github.com/crisszkutnik/telegram-bot/core/telegram/format"
	"github.com/crisszkutnik/telegram-bot/core/telegram/router"
	"github.com/crisszkutnik/telegram-bot/core/telegram/state"
)

// GuidedKeyword starts the step-by-step expense flow.
const GuidedKeyword = "gasto"

var stepPrompts = map[state.Step]string{
	state.StepName:          "Vamos a registrar un gasto. Escribe 'cancelar' para salir.\n\nCual es el nombre del gasto?",
	state.StepPaymentMethod: "Cual fue el metodo de pago?",
	state.StepAmount:        "Cual fue el monto? Puedes anteponer la moneda, por ejemplo USD 6250",
	state.StepCategory:      "A que categoria corresponde?",
	state.StepSubcategory:   "Cual es la subcategoria? Envia - para omitirla",
	state.StepDate:          "Cual es la fecha del gasto? Puedes escribir hoy, ayer o dd-mm-aaaa",
}

// GuidedExpense asks for an expense one field per message.
type GuidedExpense struct {
	deps Deps
}

// NewGuidedExpense returns the step-by-step expense handler.
func NewGuidedExpense(deps Deps) *GuidedExpense { return &GuidedExpense{deps: deps} }

// Name identifies the handler in logs.
func (*GuidedExpense) Name() string { return "guided_expense" }

// ShouldHandle claims chats inside a flow and the bare start keyword.
func (*GuidedExpense) ShouldHandle(msg router.Message, st state.Reader) bool {
	if entry, ok := st.Get(msg.ChatID); ok {
		_, inFlow := entry.ExpenseEntry()
		return inFlow
	}
	return !msg.IsReply() && strings.EqualFold(strings.TrimSpace(msg.Text), GuidedKeyword)
}

// Handle starts a flow or records the answer for the current step.
func (g *GuidedExpense) Handle(ctx context.Context, msg router.Message, st state.Store) (router.Response, error) {
	entry, ok := st.Get(msg.ChatID)
	flow, inFlow := entry.ExpenseEntry()
	if !ok || !inFlow {
		st.Set(msg.ChatID, state.Entry{
			Status: state.StatusInFlow,
			Flow:   state.ExpenseEntryFlow{Step: state.StepName},
		})
		return router.Reply(stepPrompts[state.StepName]), nil
	}

	next, err := g.advance(&flow, msg.Text)
	if err != nil {
		return router.Response{}, err
	}
	if next != "" {
		flow.Step = next
		entry.Flow = flow
		st.Set(msg.ChatID, entry)
		return router.Reply(stepPrompts[next]), nil
	}

	if err := flow.Draft.Validate(); err != nil {
		return router.Response{}, err
	}
	sent, err := g.deps.submit(ctx, msg.SenderID, flow.Draft)
	if err != nil {
		return router.Response{}, err
	}
	st.Delete(msg.ChatID)
	return router.Response{
		Text:      format.ExpenseSummary(format.HeaderRegistered, sent),
		Formatted: true,
		ReplyTo:   msg.MessageID,
	}, nil
}

// advance stores the answer for the current step and returns the next step,
// or "" once the draft is complete.
func (g *GuidedExpense) advance(flow *state.ExpenseEntryFlow, text string) (state.Step, error) {
	value := strings.TrimSpace(text)
	d := &flow.Draft

	switch flow.Step {
	case state.StepName:
		if value == "" {
			return "", apperr.User("El nombre no puede estar vacio")
		}
		d.Name = value
		return state.StepPaymentMethod, nil
	case state.StepPaymentMethod:
		if value == "" {
			return "", apperr.User("El metodo de pago no puede estar vacio")
		}
		d.PaymentMethod = value
		return state.StepAmount, nil
	case state.StepAmount:
		currency, amount, err := expense.ParseAmountStep(value)
		if err != nil {
			return "", err
		}
		d.Currency, d.Amount = currency, amount
		return state.StepCategory, nil
	case state.StepCategory:
		if value == "" {
			return "", apperr.User("La categoria no puede estar vacia")
		}
		d.Category = value
		return state.StepSubcategory, nil
	case state.StepSubcategory:
		d.Subcategory = expense.ParseOptionalStep(value)
		return state.StepDate, nil
	case state.StepDate:
		date, err := expense.ParseDate(value, g.deps.now())
		if err != nil {
			return "", err
		}
		d.Date = date
		return "", nil
	default:
		return "", apperr.User("No entendi en que paso estamos. Escribe 'cancelar' para empezar de nuevo")
	}
}
