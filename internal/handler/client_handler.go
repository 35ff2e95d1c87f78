package handler

import (
	"encoding/json"
	"net/http"

	"appointment-scheduler/internal/apperr"
	"appointment-scheduler/internal/service"
)

const maxClientBody = 64 << 10

// SearchClients answers the typeahead with at most ten matches.
func (h *Handler) SearchClients(w http.ResponseWriter, r *http.Request) {
	list, err := h.dir.Search(r.Context(), r.URL.Query().Get("term"))
	if err != nil {
		writeJSONErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var in service.ClientInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClientBody))
	if err := dec.Decode(&in); err != nil {
		writeJSONErr(w, apperr.Validation("Corpo da requisição inválido").WithDetails(err.Error()))
		return
	}
	c, err := h.dir.Create(r.Context(), in)
	if err != nil {
		writeJSONErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
