package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
)

type rejected struct{}

func (rejected) Error() string     { return "rejected" }
func (rejected) ErrorCode() string { return "invalid category" }

type plainFailure struct{}

func (*plainFailure) Error() string { return "boom" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Empty(t, deriveErrorCode(nil))
	assert.Equal(t, "USER_INPUT", deriveErrorCode(apperr.User("Monto invalido")))
	assert.Equal(t, "INVALID_CATEGORY", deriveErrorCode(fmt.Errorf("submit: %w", rejected{})))
	assert.Equal(t, "PLAINFAILURE", deriveErrorCode(&plainFailure{}))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
}
