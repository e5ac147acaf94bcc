package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/bounty-portal/internal/handler"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		h := handler.NewHealthHandler(pingerFunc(func(context.Context) error { return errors.New("down") }), testLogger())
		rr := httptest.NewRecorder()

		h.HandleLiveness(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]any{"status": "ok"}, decodeBody(t, rr))
	})

	t.Run("ready", func(t *testing.T) {
		h := handler.NewHealthHandler(pingerFunc(func(context.Context) error { return nil }), testLogger())
		rr := httptest.NewRecorder()

		h.HandleReadiness(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]any{
			"status": "ok",
			"checks": map[string]any{"database": "ok"},
		}, decodeBody(t, rr))
	})

	t.Run("degraded", func(t *testing.T) {
		h := handler.NewHealthHandler(pingerFunc(func(context.Context) error { return errors.New("down") }), testLogger())
		rr := httptest.NewRecorder()

		h.HandleReadiness(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "degraded", decodeBody(t, rr)["status"])
	})
}
