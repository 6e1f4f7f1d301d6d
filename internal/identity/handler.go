package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dsm-gateway/internal/model"
	"dsm-gateway/pkg/apierror"
)

// Handler exposes the identity service over HTTP with the shared JSON
// envelope. Routes mirror the upstream contract the gateway proxies to.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", h.login)
	r.Post("/auth/refresh", h.refresh)
	r.Post("/auth/logout", h.logout)
	r.Get("/users/me", h.currentUser)
	r.Put("/users/me", h.updateProfile)
	r.Get("/users", h.listUsers)
	r.Get("/users/menus", h.menus)
	r.Get("/users/permissions", h.permissions)

	return r
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeEnvelope(w, model.Fail(http.StatusBadRequest, "invalid JSON body"))
		return
	}

	pair, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, model.Ok(pair))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeEnvelope(w, model.Fail(http.StatusBadRequest, "invalid JSON body"))
		return
	}

	if strings.TrimSpace(payload.RefreshToken) == "" {
		writeEnvelope(w, model.Fail(http.StatusBadRequest, "refreshToken is required"))
		return
	}

	pair, err := h.service.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, model.Ok(pair))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), bearerToken(r))
	writeEnvelope(w, model.Ok(nil))
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.CurrentUser(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, model.Ok(user))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeEnvelope(w, model.Fail(http.StatusBadRequest, "invalid JSON body"))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), bearerToken(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, model.Ok(user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, model.Ok(users))
}

func (h *Handler) menus(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Menus(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, model.Ok(items))
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.Permissions(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, model.Ok(perms))
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}

	return strings.TrimSpace(header[7:])
}

func writeEnvelope(w http.ResponseWriter, envelope model.Response) {
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	if !envelope.Success && envelope.Code >= 400 && envelope.Code < 600 {
		status = envelope.Code
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		writeEnvelope(w, model.Fail(apiErr.Code, apiErr.Message))
		return
	}

	switch {
	case errors.Is(err, model.ErrUserNotFound):
		writeEnvelope(w, model.Fail(http.StatusNotFound, "user not found"))
	case errors.Is(err, model.ErrTokenInvalid), errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrUnauthorized):
		writeEnvelope(w, model.Fail(http.StatusUnauthorized, "invalid token"))
	case errors.Is(err, model.ErrInvalidCredentials):
		writeEnvelope(w, model.Fail(http.StatusUnauthorized, "invalid username or password"))
	case errors.Is(err, model.ErrForbidden):
		writeEnvelope(w, model.Fail(http.StatusForbidden, "access denied"))
	default:
		writeEnvelope(w, model.Fail(http.StatusInternalServerError, "unexpected server error"))
	}
}
