// Package service holds the auth, appointment and client use cases. Every
// operation takes the caller's identity explicitly; nothing here reads the
// session.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appointment-scheduler/internal/apperr"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/store"
)

// UserRepository is the credential store.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

// AppointmentRepository scopes every call by owner.
type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	ListAppointments(ctx context.Context, ownerID string) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, ownerID, id string) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, ownerID, id string) error
}

type ClientRepository interface {
	CreateClient(ctx context.Context, c *model.Client) error
	SearchClients(ctx context.Context, term string, limit int) ([]model.Client, error)
}

var (
	_ UserRepository        = (*store.Store)(nil)
	_ AppointmentRepository = (*store.Store)(nil)
	_ ClientRepository      = (*store.Store)(nil)
)

// storeErr logs an unexpected persistence failure and hides it behind the
// generic message.
func storeErr(log *zap.Logger, op string, err error) error {
	log.Error("store failure", zap.String("op", op), zap.Error(err))
	return apperr.Store(err)
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
func isConflict(err error) bool { return errors.Is(err, store.ErrConflict) }
func isMissingRef(err error) bool { return errors.Is(err, store.ErrMissingRef) }

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string { return uuid.New().String() }
