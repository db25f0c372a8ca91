package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/scene-engine/internal/session"
)

func TestLogger_AssignsRequestID(t *testing.T) {
	var seen string
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = session.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	id := rr.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, seen)
}

func TestLogger_KeepsClientRequestID(t *testing.T) {
	var seen string
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = session.RequestID(r.Context())
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/games", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
	assert.Equal(t, "ok", rr.Body.String())
}

func TestLogger_PassesFlusher(t *testing.T) {
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		assert.True(t, ok)
		_, _ = w.Write([]byte("data"))
		f.Flush()
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/games/x/events", nil))
	assert.True(t, rr.Flushed)
}
