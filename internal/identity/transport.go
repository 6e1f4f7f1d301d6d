package identity

import (
	"net/http"
	"net/http/httptest"
)

// Transport adapts the identity handler into an http.RoundTripper so
// the gateway client can talk to the mock backend without a network
// hop. Request paths are matched as-is; the host is ignored.
type Transport struct {
	handler http.Handler
}

func NewTransport(handler http.Handler) *Transport {
	return &Transport{handler: handler}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	recorder := httptest.NewRecorder()
	t.handler.ServeHTTP(recorder, req)

	resp := recorder.Result()
	resp.Request = req
	return resp, nil
}
