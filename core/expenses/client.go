// Package expenses submits expense drafts to the upstream expenses gRPC service.
package expenses

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/crisszkutnik/telegram-bot/core/expense"
	"github.com/crisszkutnik/telegram-bot/core/logger"
)

type invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// Client calls Expenses.AddExpense.
type Client struct {
	conn    invoker
	close   func() error
	timeout time.Duration
}

// Dial creates a lazily connecting client for target. Calls wait for the
// connection to become ready, bounded by timeout.
func Dial(target string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("expenses: dial %s: %w", target, err)
	}
	c := newClient(conn, timeout)
	c.close = conn.Close
	return c, nil
}

func newClient(conn invoker, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{conn: conn, timeout: timeout}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// AddExpense submits d on behalf of userID. A refused expense comes back as *RejectionError.
func (c *Client) AddExpense(ctx context.Context, userID string, d expense.Draft) error {
	d = d.Trimmed()
	req := buildRequest(userID, d)
	reply := dynamicpb.NewMessage(expenseSchema.reply)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.conn.Invoke(callCtx, methodAddExpense, req, reply, grpc.WaitForReady(true))
	if err != nil {
		logger.LogEvent(ctx, logger.RPC, slog.LevelError, "add_expense.fail",
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("expenses: add expense: %w", err)
	}

	fields := expenseSchema.reply.Fields()
	if reply.Get(fields.ByName("success")).Bool() {
		logger.LogEvent(ctx, logger.RPC, slog.LevelInfo, "add_expense.ok",
			slog.String("status", "ok"),
			slog.Duration("duration", time.Since(start)),
		)
		return nil
	}

	code := ErrorCode(reply.Get(fields.ByName("error_code")).Enum())
	rej := &RejectionError{
		Code:   code,
		Value:  offendingValue(code, d),
		Detail: reply.Get(fields.ByName("message")).String(),
	}
	logger.LogEvent(ctx, logger.RPC, slog.LevelWarn, "add_expense.rejected",
		slog.String("status", "fail"),
		slog.String("err_code", code.String()),
		slog.String("err", rej.Detail),
		slog.Duration("duration", time.Since(start)),
	)
	return rej
}

func buildRequest(userID string, d expense.Draft) *dynamicpb.Message {
	info := dynamicpb.NewMessage(expenseSchema.info)
	infoFields := expenseSchema.info.Fields()
	setString := func(m *dynamicpb.Message, f protoreflect.FieldDescriptor, v string) {
		if v != "" {
			m.Set(f, protoreflect.ValueOfString(v))
		}
	}
	setString(info, infoFields.ByName("name"), d.Name)
	setString(info, infoFields.ByName("payment_method_name"), d.PaymentMethod)
	setString(info, infoFields.ByName("category_name"), d.Category)
	setString(info, infoFields.ByName("subcategory_name"), d.Subcategory)
	setString(info, infoFields.ByName("currency"), d.Currency)
	info.Set(infoFields.ByName("amount"), protoreflect.ValueOfFloat64(d.Amount.InexactFloat64()))
	setString(info, infoFields.ByName("date"), expense.FormatDate(d.Date))

	req := dynamicpb.NewMessage(expenseSchema.request)
	reqFields := expenseSchema.request.Fields()
	setString(req, reqFields.ByName("user_id"), userID)
	req.Set(reqFields.ByName("expense_info"), protoreflect.ValueOfMessage(info))
	return req
}

func offendingValue(code ErrorCode, d expense.Draft) string {
	switch code {
	case CodeInvalidPaymentMethod:
		return d.PaymentMethod
	case CodeInvalidCategory:
		return d.Category
	case CodeInvalidSubcategory:
		return d.Subcategory
	case CodeInvalidDate:
		return expense.FormatDate(d.Date)
	case CodeInvalidCurrency:
		return d.Currency
	default:
		return ""
	}
}
