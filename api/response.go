package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal/logging"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Message   string     `json:"message"`
	Error     *ErrorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// ErrorBody describes a failed request. Internal causes are never included.
type ErrorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Rules     []string          `json:"rules,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, env Envelope) {
	env.Timestamp = h.now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.logger.Debug("encode response failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, message string, data any) {
	h.writeJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, status int, body ErrorBody) {
	body.RequestID = middleware.GetReqID(r.Context())
	h.writeJSON(w, status, Envelope{Message: body.Message, Error: &body})
}

// writeError maps an engine error to a status and stable code.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch authcore.KindOf(err) {
	case authcore.KindValidation:
		h.writeFailure(w, r, http.StatusBadRequest, validationBody(err))
	case authcore.KindConflict:
		h.writeFailure(w, r, http.StatusConflict, ErrorBody{Code: "EMAIL_ALREADY_EXISTS", Message: "email already registered"})
	case authcore.KindInvalidCredentials:
		h.writeFailure(w, r, http.StatusUnauthorized, ErrorBody{Code: "INVALID_CREDENTIALS", Message: "invalid credentials"})
	case authcore.KindNotFound:
		h.writeFailure(w, r, http.StatusNotFound, ErrorBody{Code: "NOT_FOUND", Message: "identity not found"})
	case authcore.KindCanceled:
		h.writeFailure(w, r, http.StatusServiceUnavailable, ErrorBody{Code: "REQUEST_CANCELED", Message: "request canceled"})
	default:
		if errors.Is(err, authcore.ErrEngineNotReady) {
			h.writeFailure(w, r, http.StatusServiceUnavailable, ErrorBody{Code: "UNAVAILABLE", Message: "service unavailable"})
			return
		}
		logging.LogError(r.Context(), h.logger, "request failed", err)
		h.writeFailure(w, r, http.StatusInternalServerError, ErrorBody{Code: "INTERNAL_ERROR", Message: "an internal error occurred"})
	}
}

func validationBody(err error) ErrorBody {
	switch {
	case errors.Is(err, authcore.ErrInvalidName):
		return ErrorBody{Code: "INVALID_NAME", Message: "name is not valid"}
	case errors.Is(err, authcore.ErrInvalidEmail):
		body := ErrorBody{Code: "INVALID_EMAIL", Message: "email is not valid"}
		if reason := credential.Reason(err); reason != "" {
			body.Fields = map[string]string{"email": reason}
		}
		return body
	default:
		return ErrorBody{Code: "WEAK_PASSWORD", Message: "password does not meet the policy", Rules: credential.Violations(err)}
	}
}

func (h *Handler) healthz(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}
		if !healthy {
			h.writeJSON(w, http.StatusServiceUnavailable, Envelope{
				Data:    status,
				Message: "unhealthy",
				Error:   &ErrorBody{Code: "UNHEALTHY", Message: "a dependency is down"},
			})
			return
		}
		h.writeData(w, http.StatusOK, "ok", status)
	}
}
