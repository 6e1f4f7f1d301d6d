package proxy

import (
	"encoding/json"
	"net/http"
	"strings"

	"dsm-gateway/internal/model"
)

// WriteEnvelope writes the envelope with an HTTP status mirroring its
// code where the code is a valid status.
func WriteEnvelope(w http.ResponseWriter, envelope model.Response) {
	status := http.StatusOK
	if !envelope.Success && envelope.Code >= 400 && envelope.Code < 600 {
		status = envelope.Code
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

// BearerToken extracts the bearer credential from the Authorization
// header, or "" when the header is missing or malformed.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}

	return strings.TrimSpace(header[7:])
}
