package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddleware_CountsRequestsByRoute(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/catalog", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog?lang=en", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	body := scrape(t, m)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/catalog",status="200"} 3`)
	assert.Contains(t, body, `http_request_duration_seconds_count{method="GET",path="/api/catalog"} 3`)
}

func TestBusinessCounters(t *testing.T) {
	m := New()

	m.ObserveDelivery("telegram", "success")
	m.ObserveDelivery("telegram", "success")
	m.ObserveDelivery("email", "skipped")
	m.RecordLead("Contact Form")
	m.RecordQuote()
	m.RecordRateLimited()

	body := scrape(t, m)
	assert.Contains(t, body, `lead_deliveries_total{channel="telegram",outcome="success"} 2`)
	assert.Contains(t, body, `lead_deliveries_total{channel="email",outcome="skipped"} 1`)
	assert.Contains(t, body, `leads_received_total{source="Contact Form"} 1`)
	assert.Contains(t, body, "quotes_calculated_total 1")
	assert.Contains(t, body, "rate_limit_rejected_total 1")
}

func TestRecordLead_UnknownSourcesShareOneSeries(t *testing.T) {
	m := New()

	for i := 0; i < 50; i++ {
		m.RecordLead(fmt.Sprintf("x-%d", i))
	}
	m.RecordLead("")
	m.RecordLead("Price Calculator")

	body := scrape(t, m)
	assert.Contains(t, body, `leads_received_total{source="other"} 51`)
	assert.Contains(t, body, `leads_received_total{source="Price Calculator"} 1`)
	assert.NotContains(t, body, `source="x-`)
	assert.Equal(t, 2, strings.Count(body, "leads_received_total{"))
}

func TestNew_InstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.RecordQuote()

	assert.Contains(t, scrape(t, a), "quotes_calculated_total 1")
	assert.Contains(t, scrape(t, b), "quotes_calculated_total 0")
}
