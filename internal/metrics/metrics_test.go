package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("reading metrics body: %v", err)
	}
	return string(body)
}

func TestCollectorExposesPipelineCounters(t *testing.T) {
	c, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	c.ObserveComment(true)
	c.ObserveComment(false)
	c.ObserveClassifierError()
	c.ObserveFeedRetry()
	c.ObserveReport()
	c.ObserveDelivery(true)
	c.ObserveDelivery(false)

	body := scrape(t, c)

	expected := []string{
		"perspective_pipeline_comments_processed_total 2",
		"perspective_pipeline_comments_escalated_total 1",
		"perspective_pipeline_classifier_errors_total 1",
		"perspective_feed_retries_total 1",
		"perspective_pipeline_reports_filed_total 1",
		`perspective_webhook_deliveries_total{outcome="success"} 1`,
		`perspective_webhook_deliveries_total{outcome="failure"} 1`,
	}
	for _, want := range expected {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilCollectorObservesAreSafe(t *testing.T) {
	var c *Collector

	c.ObserveComment(true)
	c.ObserveClassifierError()
	c.ObserveFeedRetry()
	c.ObserveReport()
	c.ObserveDelivery(false)
}
