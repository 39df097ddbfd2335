package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/cryptodash/internal/core"
)

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-test") != "yes" {
			t.Errorf("expected custom header")
		}
		w.Write([]byte(`{"BTC":{"USD":100}}`))
	}))
	defer server.Close()

	c := NewClient(0, map[string]string{"x-test": "yes"})

	var out map[string]map[string]float64
	if err := c.GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out["BTC"]["USD"] != 100 {
		t.Errorf("unexpected body %v", out)
	}
}

func TestClient_GetJSON_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var out any
	err := NewClient(0, nil).GetJSON(context.Background(), server.URL, &out)
	if !errors.Is(err, core.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected StatusError 429, got %v", err)
	}
}

func TestClient_GetJSON_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	var out any
	err := NewClient(0, nil).GetJSON(context.Background(), url, &out)
	if !errors.Is(err, core.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Error("transport failure should not carry a status")
	}
}

func TestClient_GetJSON_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>rate limited</html>`))
	}))
	defer server.Close()

	var out any
	err := NewClient(0, nil).GetJSON(context.Background(), server.URL, &out)
	if !errors.Is(err, core.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}
