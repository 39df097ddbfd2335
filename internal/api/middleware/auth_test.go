package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/cryptodash/internal/api/response"
)

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	auth := APIKeyAuth("secret-key", nil)
	wrapped := auth(handler)

	req := httptest.NewRequest("GET", "/api/v1/live", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	auth := APIKeyAuth("secret-key", nil)
	wrapped := auth(handler)

	req := httptest.NewRequest("GET", "/api/v1/live", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	auth := APIKeyAuth("secret-key", nil)
	wrapped := auth(handler)

	req := httptest.NewRequest("GET", "/api/v1/live", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAPIKeyAuth_EmptyConfiguredKey(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	auth := APIKeyAuth("", nil) // Empty = disabled
	wrapped := auth(handler)

	req := httptest.NewRequest("GET", "/api/v1/live", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when auth disabled, got %d", w.Code)
	}
}

func TestAPIKeyAuth_QueryParam(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := APIKeyAuth("secret-key", nil)(handler)

	req := httptest.NewRequest("GET", "/api/v1/live/abc/chart/price.png?api_key=secret-key", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAPIKeyAuth_ErrorCodes(t *testing.T) {
	wrapped := APIKeyAuth("secret-key", nil)(http.NotFoundHandler())

	tests := []struct {
		name string
		key  string
		code string
	}{
		{"missing", "", "CONFIG_MISSING"},
		{"wrong", "nope", "CONFIG_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/live", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			var resp response.ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, resp.Error.Code)
			}
		})
	}
}
