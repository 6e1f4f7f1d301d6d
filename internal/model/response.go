package model

import "encoding/json"

// Response is the JSON envelope shared by the gateway and the upstream
// identity backend. HTTP status mirrors Code where possible.
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Ok wraps data into a success envelope.
func Ok(data any) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return Fail(500, "failed to encode response data")
	}
	return Response{Code: 200, Message: "ok", Success: true, Data: raw}
}

// Fail builds an error envelope with the given code and message.
func Fail(code int, message string) Response {
	return Response{Code: code, Message: message, Success: false}
}

// Decode unmarshals the envelope data into out. A nil Data is left as-is
// so callers can distinguish "no payload" from a decode failure.
func (r Response) Decode(out any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, out)
}
