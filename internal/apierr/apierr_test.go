package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{New(MissingParameters, "x"), http.StatusBadRequest},
		{New(InvalidCredentials, "x"), http.StatusBadRequest},
		{New(AuthMalformed, "x"), http.StatusBadRequest},
		{New(UpstreamTransport, "x"), http.StatusServiceUnavailable},
		{New(InvalidCatalogFormat, "x"), http.StatusInternalServerError},
		{New(ProxyTimeout, "x"), http.StatusGatewayTimeout},
		{New(ProxyUnsupportedType, "x"), http.StatusUnsupportedMediaType},
		{New(ProxyGeneric, "x"), http.StatusInternalServerError},
		{&Error{Kind: ProxyUpstreamHTTP, UpstreamStatus: 451}, 451},
		{&Error{Kind: ProxyUpstreamHTTP}, http.StatusBadGateway},
	}
	for _, c := range cases {
		if got := c.err.HTTPStatus(); got != c.want {
			t.Errorf("%v: status = %d, want %d", c.err.Kind, got, c.want)
		}
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := Wrap(UpstreamTransport, cause, "fetch failed")
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	var ae *Error
	if !errors.As(error(err), &ae) || ae.Kind != UpstreamTransport {
		t.Error("errors.As should recover the typed error")
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, New(MissingParameters, "required parameters: url"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if body["error"] != "Missing Parameters" || body["details"] != "required parameters: url" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteJSONPlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, fmt.Errorf("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d", rec.Code)
	}
}
