package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func scrape(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestGinMiddleware_RecordsRouteTemplate(t *testing.T) {
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/api/projects/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/projects/42", nil)
	router.ServeHTTP(w, req)

	body := scrape(t)
	if !strings.Contains(body, `route="/api/projects/:id"`) {
		t.Error("expected route template label in scrape output")
	}
	if strings.Contains(body, `route="/api/projects/42"`) {
		t.Error("raw path must not be used as a label")
	}
}

func TestHandler_ExposesDomainSeries(t *testing.T) {
	RealtimeEvents.WithLabelValues("budget-updated", "published").Inc()
	InvoicesGenerated.Inc()

	body := scrape(t)
	for _, name := range []string{
		"studiodesk_realtime_events_total",
		"studiodesk_invoices_generated_total",
		"go_goroutines",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in scrape output", name)
		}
	}
}
