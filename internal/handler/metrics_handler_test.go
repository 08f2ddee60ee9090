package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/medichat-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("refused") }

	handler := NewMetricsHandler(nil, map[string]Pinger{"postgres": ok, "redis": ok})
	c, rec := jsonContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	handler = NewMetricsHandler(nil, map[string]Pinger{"postgres": ok, "redis": down})
	c, rec = jsonContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"down"`)
}

func TestMetricsHandlerPrometheusAndSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordAuthentication("otp", "success")
	handler := NewMetricsHandler(metrics, nil)

	c, rec := jsonContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_attempts_total")

	c, rec = jsonContext(http.MethodGet, "/admin/metrics/summary", nil)
	handler.Summary(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"auth_successes":1`)

	c, rec = jsonContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, nil).Prometheus(c)
	c.Writer.WriteHeaderNow() // flush status as gin's engine does after handlers
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
