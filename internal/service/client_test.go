package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"appointment-scheduler/internal/apperr"
	"appointment-scheduler/internal/mocks"
	"appointment-scheduler/internal/service"
	"appointment-scheduler/internal/store/memstore"
)

func clientInput(first, last, email string) service.ClientInput {
	return service.ClientInput{
		FirstName:    first,
		LastName:     last,
		Email:        email,
		Phone:        "11988887777",
		Address:      "Rua das Flores, 10",
		Neighborhood: "Centro",
		City:         "Campinas",
		BirthDate:    "1990-01-02",
	}
}

func TestDirectoryCreate(t *testing.T) {
	ctx := context.Background()
	dir := service.NewDirectory(memstore.New(), zaptest.NewLogger(t))

	c, err := dir.Create(ctx, clientInput(" Ana ", "Souza", "Ana@Example.com"))
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.FirstName)
	assert.Equal(t, "ana@example.com", c.Email)
	assert.Equal(t, "1990-01-02", c.BirthDate.String())

	_, err = dir.Create(ctx, clientInput("Ana", "Lima", "ana@example.com"))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDirectoryCreateValidation(t *testing.T) {
	dir := service.NewDirectory(memstore.New(), zaptest.NewLogger(t))

	in := clientInput("", "Souza", "not-an-email")
	in.BirthDate = "02/01/1990"
	_, err := dir.Create(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.ElementsMatch(t, []string{
		"firstName: campo obrigatório",
		"email: e-mail inválido",
		"birthDate: use o formato AAAA-MM-DD",
	}, apperr.Details(err))
}

func TestDirectorySearch(t *testing.T) {
	ctx := context.Background()
	dir := service.NewDirectory(memstore.New(), zaptest.NewLogger(t))

	for i := 0; i < 12; i++ {
		_, err := dir.Create(ctx, clientInput("Mariana", fmt.Sprintf("Costa%02d", i), fmt.Sprintf("m%d@example.com", i)))
		require.NoError(t, err)
	}
	_, err := dir.Create(ctx, clientInput("Pedro", "Anastácio", "pedro@example.com"))
	require.NoError(t, err)

	got, err := dir.Search(ctx, "ANA")
	require.NoError(t, err)
	assert.Len(t, got, service.SearchLimit)
	assert.Equal(t, "Costa00", got[0].LastName)

	got, err = dir.Search(ctx, "anast")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Pedro", got[0].FirstName)

	got, err = dir.Search(ctx, "   ")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDirectorySearchSkipsStoreForBlankTerm(t *testing.T) {
	repo := new(mocks.MockClientRepository)
	dir := service.NewDirectory(repo, zaptest.NewLogger(t))

	_, err := dir.Search(context.Background(), "")
	require.NoError(t, err)
	repo.AssertNotCalled(t, "SearchClients", mock.Anything, mock.Anything, mock.Anything)

	repo.On("SearchClients", mock.Anything, "ana", service.SearchLimit).Return(nil, errors.New("timeout")).Once()
	_, err = dir.Search(context.Background(), " ana ")
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
	repo.AssertExpectations(t)
}
