package apierror

import (
	"fmt"
	"net/http"
)

// APIError is an error that maps onto the JSON envelope. Code doubles as
// the HTTP status where the status range allows it.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%d: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func New(code int, message string, details string) *APIError {
	return &APIError{Code: code, Message: message, Details: details}
}

// HTTPStatus returns the status to write for this error. Codes outside
// the valid HTTP status range degrade to 500.
func (e *APIError) HTTPStatus() int {
	if e.Code >= 400 && e.Code < 600 {
		return e.Code
	}
	return http.StatusInternalServerError
}
