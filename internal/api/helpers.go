// Package api implements the HTTP API of the card daemon.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/micro-nova/pifi-go/internal/card"
	"github.com/micro-nova/pifi-go/internal/control"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	card     Card
	controls Controls
	events   EventBus
}

// Card is the card status the API reports.
type Card interface {
	Name() string
	State() (card.State, error)
}

// Controls is the control registry surface used by the handlers.
type Controls interface {
	List() []control.Value
	Get(name string) (control.Value, error)
	Set(ctx context.Context, name string, values []int64) (bool, error)
}

// EventBus is the interface for subscribing to control change events.
type EventBus interface {
	Subscribe(id string) <-chan control.Event
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	var appErr *AppError
	if errors.As(err, &appErr) {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(ErrInternal(err.Error()))
}

// nameParam reads a control name path parameter.
func nameParam(r *http.Request, key string) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, key))
	if err != nil || name == "" {
		return "", ErrBadRequest("invalid " + key + " parameter")
	}
	return name, nil
}
