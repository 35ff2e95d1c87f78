package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"appointment-scheduler/internal/apperr"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/service"
)

const appointmentsPath = "/appointments"

// appointmentForm is the edit form's state; dates are YYYY-MM-DD as the
// date input expects.
type appointmentForm struct {
	ID         string
	ClientName string
	Phone      string
	Service    string
	Date       string
	Time       string
	Status     string
	ClientID   string
}

func formFromAppointment(a model.Appointment) appointmentForm {
	f := appointmentForm{
		ID:         a.ID,
		ClientName: a.ClientName,
		Phone:      a.Phone,
		Service:    a.Service,
		Date:       a.Date.String(),
		Time:       model.FormatClock(a.Time),
		Status:     a.Status,
	}
	if a.ClientID != nil {
		f.ClientID = *a.ClientID
	}
	return f
}

func inputFromRequest(r *http.Request) service.AppointmentInput {
	return service.AppointmentInput{
		ClientName: r.PostFormValue("clientName"),
		Phone:      r.PostFormValue("phone"),
		Service:    r.PostFormValue("service"),
		Date:       r.PostFormValue("date"),
		Time:       r.PostFormValue("time"),
		Status:     r.PostFormValue("status"),
		ClientID:   r.PostFormValue("selectedClientId"),
	}
}

// formFromInput echoes a rejected submission back into the form.
func formFromInput(id string, in service.AppointmentInput) appointmentForm {
	return appointmentForm{
		ID:         id,
		ClientName: in.ClientName,
		Phone:      in.Phone,
		Service:    in.Service,
		Date:       in.Date,
		Time:       in.Time,
		Status:     in.Status,
		ClientID:   in.ClientID,
	}
}

func formTitle(id string) string {
	if id == "" {
		return "Novo agendamento"
	}
	return "Editar agendamento"
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.List(r.Context(), identity(r).UserID)
	if err != nil {
		h.render(w, r, statusFor(err), "appointments", page{
			Title: "Agendamentos",
			Error: apperr.Message(err),
			Data:  []model.Appointment{},
		})
		return
	}
	h.render(w, r, http.StatusOK, "appointments", page{Title: "Agendamentos", Data: list})
}

func (h *Handler) NewAppointment(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "appointment_form", page{
		Title: formTitle(""),
		Data:  appointmentForm{Status: model.StatusScheduled},
	})
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	in := inputFromRequest(r)
	if _, err := h.ledger.Create(r.Context(), identity(r).UserID, in); err != nil {
		h.render(w, r, statusFor(err), "appointment_form", page{
			Title: formTitle(""),
			Error: apperr.Message(err),
			Data:  formFromInput("", in),
		})
		return
	}
	http.Redirect(w, r, appointmentsPath, http.StatusFound)
}

// EditAppointment sends the caller back to the list when the appointment is
// missing or not theirs.
func (h *Handler) EditAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.ledger.Get(r.Context(), identity(r).UserID, id)
	if err != nil {
		h.appointmentFailed(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "appointment_form", page{
		Title: formTitle(id),
		Data:  formFromAppointment(a),
	})
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in := inputFromRequest(r)
	if _, err := h.ledger.Update(r.Context(), identity(r).UserID, id, in); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			h.appointmentFailed(w, r, err)
			return
		}
		h.render(w, r, statusFor(err), "appointment_form", page{
			Title: formTitle(id),
			Error: apperr.Message(err),
			Data:  formFromInput(id, in),
		})
		return
	}
	http.Redirect(w, r, appointmentsPath, http.StatusFound)
}

func (h *Handler) SetAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	_, err := h.ledger.SetStatus(r.Context(), identity(r).UserID, chi.URLParam(r, "id"), r.PostFormValue("status"))
	if err != nil {
		h.appointmentFailed(w, r, err)
		return
	}
	http.Redirect(w, r, appointmentsPath, http.StatusFound)
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Delete(r.Context(), identity(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.appointmentFailed(w, r, err)
		return
	}
	http.Redirect(w, r, appointmentsPath, http.StatusFound)
}

// appointmentFailed redirects to the list, carrying the message as a flash
// unless the appointment simply was not found.
func (h *Handler) appointmentFailed(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) != apperr.KindNotFound {
		h.flash(w, r, apperr.Message(err))
	}
	http.Redirect(w, r, appointmentsPath, http.StatusFound)
}
