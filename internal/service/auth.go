package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"appointment-scheduler/internal/apperr"
	"appointment-scheduler/internal/auth"
	"appointment-scheduler/internal/model"
)

const minPasswordLen = 6

const (
	msgCredentialsRequired = "Nome de usuário e senha são obrigatórios"
	msgPasswordTooShort    = "A senha deve ter pelo menos 6 caracteres"
	msgUsernameTaken       = "O nome de usuário já existe"
	msgInvalidCredentials  = "Nome de usuário ou senha inválidos"
	msgWrongPassword       = "A senha atual está incorreta"
	msgUserNotFound        = "Usuário não encontrado"
)

type AuthService struct {
	users UserRepository
	log   *zap.Logger
}

func NewAuthService(users UserRepository, log *zap.Logger) *AuthService {
	return &AuthService{users: users, log: log.Named("auth")}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, apperr.Validation(msgCredentialsRequired)
	}
	if len(password) < minPasswordLen {
		return model.User{}, apperr.Validation(msgPasswordTooShort)
	}

	if _, err := s.users.UserByUsername(ctx, username); err == nil {
		return model.User{}, apperr.Conflict(msgUsernameTaken)
	} else if !isNotFound(err) {
		return model.User{}, storeErr(s.log, "user.lookup", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return model.User{}, storeErr(s.log, "user.hash", err)
	}

	u := model.User{ID: newID(), Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		// lost a race with a concurrent registration
		if isConflict(err) {
			return model.User{}, apperr.Conflict(msgUsernameTaken)
		}
		return model.User{}, storeErr(s.log, "user.create", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// Login checks the credentials. Unknown users and wrong passwords yield the
// same AuthError.
func (s *AuthService) Login(ctx context.Context, username, password string) (model.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.Identity{}, apperr.Validation(msgCredentialsRequired)
	}

	u, err := s.users.UserByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return model.Identity{}, apperr.Auth(msgInvalidCredentials)
		}
		return model.Identity{}, storeErr(s.log, "user.lookup", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return model.Identity{}, apperr.Auth(msgInvalidCredentials)
	}
	return model.Identity{UserID: u.ID, Username: u.Username}, nil
}

func (s *AuthService) Profile(ctx context.Context, id model.Identity) (model.User, error) {
	u, err := s.users.UserByID(ctx, id.UserID)
	if err != nil {
		if isNotFound(err) {
			return model.User{}, apperr.NotFound(msgUserNotFound)
		}
		return model.User{}, storeErr(s.log, "user.get", err)
	}
	return *u, nil
}

// ProfileUpdate leaves a field unchanged when it is empty.
type ProfileUpdate struct {
	Username        string
	CurrentPassword string
	NewPassword     string
}

func (s *AuthService) UpdateProfile(ctx context.Context, id model.Identity, upd ProfileUpdate) (model.User, error) {
	u, err := s.users.UserByID(ctx, id.UserID)
	if err != nil {
		if isNotFound(err) {
			return model.User{}, apperr.NotFound(msgUserNotFound)
		}
		return model.User{}, storeErr(s.log, "user.get", err)
	}

	if upd.NewPassword != "" {
		if !auth.CheckPassword(u.PasswordHash, upd.CurrentPassword) {
			return model.User{}, apperr.Auth(msgWrongPassword)
		}
		if len(upd.NewPassword) < minPasswordLen {
			return model.User{}, apperr.Validation(msgPasswordTooShort)
		}
		hash, err := auth.HashPassword(upd.NewPassword)
		if err != nil {
			return model.User{}, storeErr(s.log, "user.hash", err)
		}
		u.PasswordHash = hash
	}

	if name := strings.TrimSpace(upd.Username); name != "" && name != u.Username {
		other, err := s.users.UserByUsername(ctx, name)
		switch {
		case err == nil && other.ID != u.ID:
			return model.User{}, apperr.Conflict(msgUsernameTaken)
		case err != nil && !isNotFound(err):
			return model.User{}, storeErr(s.log, "user.lookup", err)
		}
		u.Username = name
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		switch {
		case isConflict(err):
			return model.User{}, apperr.Conflict(msgUsernameTaken)
		case isNotFound(err):
			return model.User{}, apperr.NotFound(msgUserNotFound)
		}
		return model.User{}, storeErr(s.log, "user.update", err)
	}
	return *u, nil
}

// DeleteAccount removes the user; their appointments go with them.
func (s *AuthService) DeleteAccount(ctx context.Context, id model.Identity) error {
	if err := s.users.DeleteUser(ctx, id.UserID); err != nil {
		if isNotFound(err) {
			return apperr.NotFound(msgUserNotFound)
		}
		return storeErr(s.log, "user.delete", err)
	}
	s.log.Info("account deleted", zap.String("user_id", id.UserID))
	return nil
}
