package api

import (
	"encoding/json"
	"net/http"
)

// ControlUpdate is the body of PUT /api/controls/{name}. A single value is
// applied to every channel of the control.
type ControlUpdate struct {
	Values []int64 `json:"values"`
}

func (h *Handlers) getControls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"controls": h.controls.List()})
}

func (h *Handlers) getControl(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r, "name")
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.controls.Get(name)
	if err != nil {
		writeError(w, fromControlError(err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) setControl(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r, "name")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd ControlUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if len(upd.Values) == 0 {
		writeError(w, ErrBadRequest("values must not be empty"))
		return
	}
	if _, err := h.controls.Set(r.Context(), name, upd.Values); err != nil {
		writeError(w, fromControlError(err))
		return
	}
	v, err := h.controls.Get(name)
	if err != nil {
		writeError(w, fromControlError(err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}
