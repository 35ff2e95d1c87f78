package handler

import (
	"net/http"

	"go.uber.org/zap"

	"appointment-scheduler/internal/apperr"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/service"
	"appointment-scheduler/internal/session"
)

const (
	msgRegistered     = "Cadastro realizado com sucesso! Faça login."
	msgProfileUpdated = "Perfil atualizado com sucesso"
	msgAccountDeleted = "Sua conta foi excluída."
)

type credentialsForm struct {
	Username string
}

// Home sends visitors to their list or to the login page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.IdentityOf(h.session(r)); ok {
		http.Redirect(w, r, "/appointments", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/users/login", http.StatusFound)
}

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", page{Title: "Cadastro", Data: credentialsForm{}})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	if _, err := h.auth.Register(r.Context(), username, r.PostFormValue("password")); err != nil {
		h.render(w, r, statusFor(err), "register", page{
			Title: "Cadastro",
			Error: apperr.Message(err),
			Data:  credentialsForm{Username: username},
		})
		return
	}
	h.authEvent("register")
	h.flash(w, r, msgRegistered)
	http.Redirect(w, r, "/users/login", http.StatusFound)
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", page{Title: "Entrar", Data: credentialsForm{}})
}

// Login establishes the session under a fresh id.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	id, err := h.auth.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		h.authEvent("login_failure")
		h.render(w, r, statusFor(err), "login", page{
			Title: "Entrar",
			Error: apperr.Message(err),
			Data:  credentialsForm{Username: username},
		})
		return
	}

	sess := h.session(r)
	if err := h.sessions.Rotate(r, sess); err != nil {
		h.log.Warn("session rotate failed", zap.Error(err))
	}
	// anonymous values, the csrf nonce included, do not survive login
	sess.Values = map[interface{}]interface{}{}
	session.SetIdentity(sess, id)
	if err := h.sessions.Save(r, w, sess); err != nil {
		h.log.Error("session save failed", zap.Error(err))
		h.render(w, r, http.StatusInternalServerError, "login", page{
			Title: "Entrar",
			Error: apperr.GenericMessage,
			Data:  credentialsForm{Username: username},
		})
		return
	}
	h.authEvent("login_success")
	http.Redirect(w, r, "/appointments", http.StatusFound)
}

// Logout always succeeds, with or without a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r, w, h.session(r)); err != nil {
		h.log.Warn("session destroy failed", zap.Error(err))
	}
	h.authEvent("logout")
	http.Redirect(w, r, "/users/login", http.StatusFound)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.Profile(r.Context(), identity(r))
	if err != nil {
		h.profileGone(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "profile", page{Title: "Meu perfil", Data: u})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	u, err := h.auth.UpdateProfile(r.Context(), id, service.ProfileUpdate{
		Username:        r.PostFormValue("username"),
		CurrentPassword: r.PostFormValue("currentPassword"),
		NewPassword:     r.PostFormValue("newPassword"),
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			h.profileGone(w, r, err)
			return
		}
		cur, lookupErr := h.auth.Profile(r.Context(), id)
		if lookupErr != nil {
			cur = model.User{Username: id.Username}
		}
		h.render(w, r, statusFor(err), "profile", page{
			Title: "Meu perfil",
			Error: apperr.Message(err),
			Data:  cur,
		})
		return
	}

	sess := h.session(r)
	session.SetIdentity(sess, model.Identity{UserID: u.ID, Username: u.Username})
	sess.AddFlash(msgProfileUpdated)
	h.save(w, r, sess)
	http.Redirect(w, r, "/users/profile", http.StatusFound)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := h.auth.DeleteAccount(r.Context(), identity(r))
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		u, _ := h.auth.Profile(r.Context(), identity(r))
		h.render(w, r, statusFor(err), "profile", page{
			Title: "Meu perfil",
			Error: apperr.Message(err),
			Data:  u,
		})
		return
	}
	sess := h.session(r)
	if err := h.sessions.Rotate(r, sess); err != nil {
		h.log.Warn("session rotate failed", zap.Error(err))
	}
	sess.Values = map[interface{}]interface{}{}
	sess.AddFlash(msgAccountDeleted)
	h.save(w, r, sess)
	http.Redirect(w, r, "/users/login", http.StatusFound)
}

// profileGone handles a session whose user no longer exists.
func (h *Handler) profileGone(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindNotFound {
		_ = h.sessions.Destroy(r, w, h.session(r))
		http.Redirect(w, r, "/users/login", http.StatusFound)
		return
	}
	h.render(w, r, statusFor(err), "profile", page{
		Title: "Meu perfil",
		Error: apperr.Message(err),
		Data:  model.User{Username: identity(r).Username},
	})
}
