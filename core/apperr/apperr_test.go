package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessageThroughWrapping(t *testing.T) {
	err := fmt.Errorf("parse: %w", Userf("La fecha %s no es una fecha valida", "32/13/2024"))

	msg, ok := UserMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "La fecha 32/13/2024 no es una fecha valida", msg)
	assert.True(t, IsUser(err))
}

func TestSystemErrorsAreNotUserFacing(t *testing.T) {
	err := fmt.Errorf("resolve user: %w", ErrNotFound)

	_, ok := UserMessage(err)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestWrapUserKeepsCause(t *testing.T) {
	cause := errors.New("strconv: invalid syntax")
	err := WrapUser("Monto invalido", cause)

	assert.ErrorIs(t, err, cause)
	msg, _ := UserMessage(err)
	assert.Equal(t, "Monto invalido", msg)
}

type silentErr struct{}

func (silentErr) Error() string       { return "internal" }
func (silentErr) UserMessage() string { return "" }

func TestEmptyUserMessageIsSystemError(t *testing.T) {
	err := fmt.Errorf("submit: %w", silentErr{})

	assert.False(t, IsUser(err))
}
