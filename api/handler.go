package api

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

// Service is the part of *authcore.Engine the HTTP layer calls.
type Service interface {
	middleware.Validator
	Register(ctx context.Context, input authcore.RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (authcore.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (authcore.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	GetIdentity(ctx context.Context, identityID string) (authcore.Identity, error)
	ListIdentities(ctx context.Context, limit, offset int) ([]authcore.Identity, error)
	CountActive(ctx context.Context) (int, error)
	UpdateIdentity(ctx context.Context, identityID string, update authcore.IdentityUpdate) (authcore.Identity, error)
	Deactivate(ctx context.Context, identityID string) error
}

// Handler serves the auth and identity routes.
type Handler struct {
	svc          Service
	logger       *slog.Logger
	now          func() time.Time
	maxBodyBytes int64
}

type registerResponse struct {
	IdentityID string `json:"identity_id"`
}

type tokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	IdentityID       string    `json:"identity_id"`
	Email            string    `json:"email"`
}

type identityResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type identityPage struct {
	Items      []identityResponse `json:"items"`
	Pagination pagination         `json:"pagination"`
}

func toTokenResponse(res authcore.LoginResult) tokenResponse {
	return tokenResponse{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        int64(res.ExpiresIn / time.Second),
		RefreshExpiresAt: res.RefreshExpiresAt.UTC(),
		IdentityID:       res.IdentityID,
		Email:            res.Email,
	}
}

func toIdentityResponse(identity authcore.Identity) identityResponse {
	return identityResponse{
		ID:        identity.ID,
		Name:      identity.Name,
		Email:     identity.Email,
		IsActive:  identity.IsActive,
		CreatedAt: identity.CreatedAt.UTC(),
		UpdatedAt: identity.UpdatedAt.UTC(),
	}
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.bind(w, r, &req) {
		return
	}

	id, err := h.svc.Register(r.Context(), authcore.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusCreated, "identity registered", registerResponse{IdentityID: id})
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.bind(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusOK, "login succeeded", toTokenResponse(res))
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.bind(w, r, &req) {
		return
	}

	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusOK, "token refreshed", toTokenResponse(res))
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.bind(w, r, &req) {
		return
	}

	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusOK, "logged out", nil)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.writeFailure(w, r, http.StatusUnauthorized, ErrorBody{Code: "UNAUTHORIZED", Message: "not authenticated"})
		return
	}

	identity, err := h.svc.GetIdentity(r.Context(), claims.Subject)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusOK, "identity found", toIdentityResponse(identity))
}

// ListIdentities handles GET /api/v1/users?page=&limit=.
func (h *Handler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	page := positiveQuery(r, "page", 1)
	limit := positiveQuery(r, "limit", 10)
	if limit > 100 {
		limit = 100
	}

	identities, err := h.svc.ListIdentities(r.Context(), limit, pageOffset(page, limit))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := h.svc.CountActive(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]identityResponse, 0, len(identities))
	for _, identity := range identities {
		items = append(items, toIdentityResponse(identity))
	}
	pages := total / limit
	if total%limit > 0 {
		pages++
	}

	h.writeData(w, http.StatusOK, "identities listed", identityPage{
		Items:      items,
		Pagination: pagination{Page: page, Limit: limit, Total: total, Pages: pages},
	})
}

// GetIdentity handles GET /api/v1/users/{id}.
func (h *Handler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	identity, err := h.svc.GetIdentity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusOK, "identity found", toIdentityResponse(identity))
}

// UpdateIdentity handles PATCH /api/v1/users/{id}. Only the owner may call it.
func (h *Handler) UpdateIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req updateIdentityRequest
	if !h.bind(w, r, &req) {
		return
	}
	if req.Name == nil && req.Email == nil {
		h.writeFailure(w, r, http.StatusBadRequest, ErrorBody{Code: "INVALID_INPUT", Message: "nothing to update"})
		return
	}

	identity, err := h.svc.UpdateIdentity(r.Context(), id, authcore.IdentityUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusOK, "identity updated", toIdentityResponse(identity))
}

// DeactivateIdentity handles DELETE /api/v1/users/{id}. Only the owner may call it.
func (h *Handler) DeactivateIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusOK, "identity deactivated", nil)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.writeFailure(w, r, http.StatusUnauthorized, ErrorBody{Code: "UNAUTHORIZED", Message: "not authenticated"})
		return "", false
	}
	if claims.Subject != id {
		h.writeFailure(w, r, http.StatusForbidden, ErrorBody{Code: "FORBIDDEN", Message: "only the owner may change this identity"})
		return "", false
	}
	return id, true
}

func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decode(w, r, h.maxBodyBytes, dst); err != nil {
		status, body := requestErrorBody(err)
		h.writeFailure(w, r, status, body)
		return false
	}
	return true
}

// pageOffset saturates at math.MaxInt so a huge page lands past the last row
// instead of wrapping back to the first.
func pageOffset(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func positiveQuery(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
