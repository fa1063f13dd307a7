package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medagenda/or-assistant/internal/http/handlers"
)

type echoDialog struct{}

func (echoDialog) Handle(_ context.Context, _, text string) string {
	return "eco: " + text
}

func newTestRouter() http.Handler {
	reg := prometheus.NewRegistry()
	return New(&Config{
		WhatsAppHandler: handlers.NewWhatsAppHandler(echoDialog{}, "", nil, nil),
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func TestHealthRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWhatsAppRoute(t *testing.T) {
	form := url.Values{
		"From": {"whatsapp:+5215512345678"},
		"Body": {"hola"},
	}
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Message>eco: hola</Message>")
}

func TestMetricsRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
