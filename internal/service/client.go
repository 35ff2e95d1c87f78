package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"appointment-scheduler/internal/apperr"
	"appointment-scheduler/internal/model"
)

// SearchLimit caps typeahead results.
const SearchLimit = 10

const (
	msgInvalidClient = "Dados do cliente inválidos"
	msgEmailTaken    = "Já existe um cliente com este e-mail"
)

// ClientInput is the JSON body of a client registration.
type ClientInput struct {
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	Address      string `json:"address" validate:"required"`
	Neighborhood string `json:"neighborhood" validate:"required"`
	City         string `json:"city" validate:"required"`
	BirthDate    string `json:"birthDate" validate:"required,datetime=2006-01-02"`
}

func (in *ClientInput) trim() {
	for _, f := range []*string{
		&in.FirstName, &in.LastName, &in.Email, &in.Phone,
		&in.Address, &in.Neighborhood, &in.City, &in.BirthDate,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// Directory is the shared client register.
type Directory struct {
	repo     ClientRepository
	validate *validator.Validate
	log      *zap.Logger
}

func NewDirectory(repo ClientRepository, log *zap.Logger) *Directory {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Directory{repo: repo, validate: v, log: log.Named("directory")}
}

// Search matches term against first and last names. A blank term matches
// nothing.
func (d *Directory) Search(ctx context.Context, term string) ([]model.Client, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []model.Client{}, nil
	}
	out, err := d.repo.SearchClients(ctx, term, SearchLimit)
	if err != nil {
		return nil, storeErr(d.log, "client.search", err)
	}
	return out, nil
}

func (d *Directory) Create(ctx context.Context, in ClientInput) (model.Client, error) {
	in.trim()
	if err := d.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return model.Client{}, apperr.Validation(msgInvalidClient).WithDetails(describe(verrs)...)
		}
		return model.Client{}, apperr.Validation(msgInvalidClient)
	}
	birth, err := civil.ParseDate(in.BirthDate)
	if err != nil {
		return model.Client{}, apperr.Validation(msgInvalidClient).WithDetails("birthDate: data inválida")
	}

	c := model.Client{
		ID:           newID(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        strings.ToLower(in.Email),
		Phone:        in.Phone,
		Address:      in.Address,
		Neighborhood: in.Neighborhood,
		City:         in.City,
		BirthDate:    birth,
	}
	if err := d.repo.CreateClient(ctx, &c); err != nil {
		if isConflict(err) {
			return model.Client{}, apperr.Conflict(msgEmailTaken)
		}
		return model.Client{}, storeErr(d.log, "client.create", err)
	}
	d.log.Info("client created", zap.String("client_id", c.ID))
	return c, nil
}

func describe(verrs validator.ValidationErrors) []string {
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "campo obrigatório"
		case "email":
			msg = "e-mail inválido"
		case "datetime":
			msg = "use o formato AAAA-MM-DD"
		default:
			msg = "valor inválido"
		}
		out = append(out, fmt.Sprintf("%s: %s", fe.Field(), msg))
	}
	return out
}
