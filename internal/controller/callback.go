package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/dto"
)

type CodeExchanger interface {
	ExchangeCodeForSession(ctx context.Context, code string) (*dto.AuthResponse, error)
}

type ConnectionChecker interface {
	CheckConnection(ctx context.Context) bool
}

type CallbackController interface {
	Callback(w http.ResponseWriter, r *http.Request) error
	Health(w http.ResponseWriter, r *http.Request) error
}

type controller struct {
	auth   CodeExchanger
	health ConnectionChecker
	done   func(*dto.AuthResponse)
}

// New builds the controller of the local redirect server. done, when set,
// receives the session after a successful exchange.
func New(auth CodeExchanger, health ConnectionChecker, done func(*dto.AuthResponse)) CallbackController {
	return &controller{auth: auth, health: health, done: done}
}

func (c *controller) Callback(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	if desc := q.Get("error_description"); desc != "" || q.Get("error") != "" {
		if desc == "" {
			desc = q.Get("error")
		}
		return &customerrors.Error{
			Code:    http.StatusUnauthorized,
			Message: desc,
			Kind:    customerrors.KindAuth,
		}
	}

	code := q.Get("code")
	if code == "" {
		return customerrors.ErrBadRequest
	}

	res, err := c.auth.ExchangeCodeForSession(r.Context(), code)
	if err != nil {
		return err
	}
	if c.done != nil {
		c.done(res)
	}

	return c.respond(w, http.StatusOK, res.User)
}

func (c *controller) Health(w http.ResponseWriter, r *http.Request) error {
	if !c.health.CheckConnection(r.Context()) {
		return customerrors.ErrNetwork
	}
	return c.respond(w, http.StatusOK, dto.MessageResponse{Message: "ok"})
}

func (c *controller) respond(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
