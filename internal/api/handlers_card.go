package api

import "net/http"

// CardStatus is the body of GET /api/card.
type CardStatus struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
	Controls int    `json:"controls"`
}

func (h *Handlers) getCard(w http.ResponseWriter, r *http.Request) {
	st, err := h.card.State()
	status := CardStatus{
		Name:     h.card.Name(),
		State:    st.String(),
		Controls: len(h.controls.List()),
	}
	if err != nil {
		status.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}
