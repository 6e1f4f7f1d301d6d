// Package proxy implements the server-side routes standing between the
// browser and the upstream identity backend. They forward credential
// exchanges upstream and translate the resulting token pairs into
// locally managed cookies.
package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"dsm-gateway/internal/gateway"
	"dsm-gateway/internal/model"
	"dsm-gateway/internal/token"
)

type AuthHandler struct {
	client *gateway.Client
	tokens *token.Store
}

func NewAuthHandler(client *gateway.Client, tokens *token.Store) *AuthHandler {
	return &AuthHandler{client: client, tokens: tokens}
}

// Login forwards credentials verbatim and, on success, materializes the
// issued token pair as response cookies. Upstream failures pass through
// unchanged.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteEnvelope(w, model.Fail(http.StatusBadRequest, "invalid JSON body"))
		return
	}

	envelope := h.client.Post(r.Context(), "/auth/login", "", payload)
	if envelope.Success {
		var pair model.TokenPair
		if err := envelope.Decode(&pair); err != nil || pair.AccessToken == "" {
			slog.Error("login succeeded upstream but token pair was unreadable")
			WriteEnvelope(w, model.Fail(http.StatusInternalServerError, "malformed upstream response"))
			return
		}
		h.tokens.WritePair(w, pair.AccessToken, pair.RefreshToken)
	}

	WriteEnvelope(w, envelope)
}

// Refresh forwards the refresh exchange and overwrites both cookies on
// success. On failure cookies stay untouched; the caller decides the
// fallback.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RefreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	// The refresh cookie is HttpOnly, so browser callers cannot put the
	// token in the body themselves; the cookie is the usual source.
	if payload.RefreshToken == "" {
		payload.RefreshToken = h.tokens.Read(r, token.Refresh)
	}
	if payload.RefreshToken == "" {
		WriteEnvelope(w, model.Fail(http.StatusBadRequest, "missing refresh token"))
		return
	}

	envelope := h.client.Post(r.Context(), "/auth/refresh", "", payload)
	if envelope.Success {
		var pair model.TokenPair
		if err := envelope.Decode(&pair); err != nil || pair.AccessToken == "" {
			slog.Error("refresh succeeded upstream but token pair was unreadable")
			WriteEnvelope(w, model.Fail(http.StatusInternalServerError, "malformed upstream response"))
			return
		}
		h.tokens.WritePair(w, pair.AccessToken, pair.RefreshToken)
	}

	WriteEnvelope(w, envelope)
}

// Logout notifies the upstream (best effort) and clears both cookies
// unconditionally. Session teardown must always succeed locally.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	envelope := h.client.Post(r.Context(), "/auth/logout", BearerToken(r), nil)
	if !envelope.Success {
		slog.Warn("upstream logout failed", "code", envelope.Code, "message", envelope.Message)
	}

	h.tokens.Clear(w)
	WriteEnvelope(w, model.Ok(nil))
}
