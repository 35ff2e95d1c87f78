package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("x")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrapped: %w", Conflict("x"))))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NotFound("agendamento não encontrado"))
	assert.ErrorIs(t, err, NotFound(""))
	assert.NotErrorIs(t, err, Auth(""))
}

func TestStoreHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused on 10.0.0.3")
	err := Store(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, GenericMessage, Message(err))
	assert.NotContains(t, Message(err), "10.0.0.3")
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "campo obrigatório", Message(Validation("campo obrigatório")))
	assert.Equal(t, GenericMessage, Message(errors.New("boom")))
}

func TestWithDetails(t *testing.T) {
	base := Validation("dados inválidos")
	err := fmt.Errorf("create: %w", base.WithDetails("email: formato inválido"))

	assert.Equal(t, []string{"email: formato inválido"}, Details(err))
	assert.Nil(t, base.Details)
	assert.Nil(t, Details(errors.New("boom")))
}
