package service

import (
	"context"
	"html"
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"appointment-scheduler/internal/apperr"
	"appointment-scheduler/internal/model"
)

var clockRE = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

const (
	msgClientNameRequired  = "O nome do cliente é obrigatório"
	msgPhoneRequired       = "O telefone é obrigatório"
	msgServiceRequired     = "O serviço é obrigatório"
	msgInvalidDate         = "Data inválida. Use o formato AAAA-MM-DD"
	msgInvalidTime         = "Horário inválido. Use o formato HH:MM"
	msgInvalidStatus       = "Status inválido"
	msgAppointmentNotFound = "Agendamento não encontrado"
)

// AppointmentInput is the raw form submission. Status is only honoured on
// update; ClientID is set when the form was filled from a directory entry.
type AppointmentInput struct {
	ClientName string
	Phone      string
	Service    string
	Date       string
	Time       string
	Status     string
	ClientID   string
}

type validAppointment struct {
	clientName string
	phone      string
	service    string
	date       civil.Date
	time       civil.Time
}

// Ledger is the owner-scoped appointment book.
type Ledger struct {
	repo   AppointmentRepository
	policy *bluemonday.Policy
	log    *zap.Logger
}

func NewLedger(repo AppointmentRepository, log *zap.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		policy: bluemonday.StrictPolicy(),
		log:    log.Named("ledger"),
	}
}

// maxCleanPasses bounds clean for values entity-encoded several times over.
const maxCleanPasses = 4

// clean strips all markup and stores plain text; templates escape on output.
// Decoding entities can surface new tags, so it repeats until the value is
// stable. A value still carrying markup after maxCleanPasses loses its angle
// brackets.
func (l *Ledger) clean(s string) string {
	for i := 0; i < maxCleanPasses; i++ {
		next := html.UnescapeString(l.policy.Sanitize(s))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(s))
}

func (l *Ledger) validate(in AppointmentInput) (validAppointment, error) {
	v := validAppointment{
		clientName: l.clean(in.ClientName),
		phone:      l.clean(in.Phone),
		service:    l.clean(in.Service),
	}
	if v.clientName == "" {
		return v, apperr.Validation(msgClientNameRequired)
	}
	if v.phone == "" {
		return v, apperr.Validation(msgPhoneRequired)
	}
	if v.service == "" {
		return v, apperr.Validation(msgServiceRequired)
	}

	d, err := parseDate(in.Date)
	if err != nil {
		return v, err
	}
	v.date = d

	t, err := parseClock(in.Time)
	if err != nil {
		return v, err
	}
	v.time = t
	return v, nil
}

func parseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) != len("2006-01-02") {
		return civil.Date{}, apperr.Validation(msgInvalidDate)
	}
	d, err := civil.ParseDate(s)
	if err != nil || !d.IsValid() {
		return civil.Date{}, apperr.Validation(msgInvalidDate)
	}
	return d, nil
}

func parseClock(s string) (civil.Time, error) {
	s = strings.TrimSpace(s)
	if !clockRE.MatchString(s) {
		return civil.Time{}, apperr.Validation(msgInvalidTime)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	return civil.Time{Hour: h, Minute: m}, nil
}

func clientRef(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" || !validID(id) {
		return nil
	}
	return &id
}

// List returns the owner's appointments by date, then time.
func (l *Ledger) List(ctx context.Context, ownerID string) ([]model.Appointment, error) {
	out, err := l.repo.ListAppointments(ctx, ownerID)
	if err != nil {
		return nil, storeErr(l.log, "appointment.list", err)
	}
	return out, nil
}

func (l *Ledger) Get(ctx context.Context, ownerID, id string) (model.Appointment, error) {
	if !validID(id) {
		return model.Appointment{}, apperr.NotFound(msgAppointmentNotFound)
	}
	a, err := l.repo.GetAppointment(ctx, ownerID, id)
	if err != nil {
		if isNotFound(err) {
			return model.Appointment{}, apperr.NotFound(msgAppointmentNotFound)
		}
		return model.Appointment{}, storeErr(l.log, "appointment.get", err)
	}
	return *a, nil
}

// Create stores a new appointment for ownerID with status scheduled.
func (l *Ledger) Create(ctx context.Context, ownerID string, in AppointmentInput) (model.Appointment, error) {
	v, err := l.validate(in)
	if err != nil {
		return model.Appointment{}, err
	}
	a := model.Appointment{
		ID:         newID(),
		ClientName: v.clientName,
		Phone:      v.phone,
		Service:    v.service,
		Date:       v.date,
		Time:       v.time,
		Status:     model.StatusScheduled,
		OwnerID:    ownerID,
		ClientID:   clientRef(in.ClientID),
	}
	err = l.repo.CreateAppointment(ctx, &a)
	if l.dropStaleClient(err, &a) {
		err = l.repo.CreateAppointment(ctx, &a)
	}
	if err != nil {
		return model.Appointment{}, storeErr(l.log, "appointment.create", err)
	}
	l.log.Debug("appointment created", zap.String("id", a.ID), zap.String("owner_id", ownerID))
	return a, nil
}

// Update replaces the editable fields. An empty Status keeps the stored one;
// the client reference is replaced as posted, so an empty ClientID clears it.
// Ownership is checked before the input.
func (l *Ledger) Update(ctx context.Context, ownerID, id string, in AppointmentInput) (model.Appointment, error) {
	a, err := l.Get(ctx, ownerID, id)
	if err != nil {
		return model.Appointment{}, err
	}

	v, err := l.validate(in)
	if err != nil {
		return model.Appointment{}, err
	}
	status := strings.TrimSpace(in.Status)
	if status != "" && !model.ValidStatus(status) {
		return model.Appointment{}, apperr.Validation(msgInvalidStatus)
	}

	a.ClientName = v.clientName
	a.Phone = v.phone
	a.Service = v.service
	a.Date = v.date
	a.Time = v.time
	if status != "" {
		a.Status = status
	}
	a.ClientID = clientRef(in.ClientID)
	return l.save(ctx, a)
}

func (l *Ledger) SetStatus(ctx context.Context, ownerID, id, status string) (model.Appointment, error) {
	if !model.ValidStatus(status) {
		return model.Appointment{}, apperr.Validation(msgInvalidStatus)
	}
	a, err := l.Get(ctx, ownerID, id)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = status
	return l.save(ctx, a)
}

func (l *Ledger) save(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	err := l.repo.UpdateAppointment(ctx, &a)
	if l.dropStaleClient(err, &a) {
		err = l.repo.UpdateAppointment(ctx, &a)
	}
	if err != nil {
		if isNotFound(err) {
			return model.Appointment{}, apperr.NotFound(msgAppointmentNotFound)
		}
		return model.Appointment{}, storeErr(l.log, "appointment.update", err)
	}
	return a, nil
}

// dropStaleClient clears a client reference the store rejected as unknown and
// reports whether the write should be retried.
func (l *Ledger) dropStaleClient(err error, a *model.Appointment) bool {
	if a.ClientID == nil || !isMissingRef(err) {
		return false
	}
	l.log.Info("dropping unknown client reference",
		zap.String("appointment_id", a.ID), zap.String("client_id", *a.ClientID))
	a.ClientID = nil
	return true
}

// Delete is silent when the appointment is missing or owned by someone else.
func (l *Ledger) Delete(ctx context.Context, ownerID, id string) error {
	if !validID(id) {
		return nil
	}
	if err := l.repo.DeleteAppointment(ctx, ownerID, id); err != nil {
		return storeErr(l.log, "appointment.delete", err)
	}
	return nil
}
