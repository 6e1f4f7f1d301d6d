package proxy

import (
	"encoding/json"
	"net/http"

	"dsm-gateway/internal/gateway"
	"dsm-gateway/internal/model"
)

// UserHandler proxies the user-record endpoints. The session middleware
// has already attached the bearer header by the time these run.
type UserHandler struct {
	client *gateway.Client
}

func NewUserHandler(client *gateway.Client) *UserHandler {
	return &UserHandler{client: client}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, h.client.Get(r.Context(), "/users/me", BearerToken(r)))
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteEnvelope(w, model.Fail(http.StatusBadRequest, "invalid JSON body"))
		return
	}

	WriteEnvelope(w, h.client.Put(r.Context(), "/users/me", BearerToken(r), payload))
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, h.client.Get(r.Context(), "/users", BearerToken(r)))
}

func (h *UserHandler) Menus(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, h.client.Get(r.Context(), "/users/menus", BearerToken(r)))
}

func (h *UserHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, h.client.Get(r.Context(), "/users/permissions", BearerToken(r)))
}
