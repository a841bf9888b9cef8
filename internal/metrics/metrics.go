package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for the moderation pipeline. All
// observe methods are safe on a nil receiver so components can run without
// metrics wired in.
type Collector struct {
	registry          *prometheus.Registry
	commentsProcessed prometheus.Counter
	commentsEscalated prometheus.Counter
	classifierErrors  prometheus.Counter
	feedRetries       prometheus.Counter
	reportsFiled      prometheus.Counter
	webhookDeliveries *prometheus.CounterVec
}

// NewCollector constructs a collector with the pipeline's counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	commentsProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "perspective",
		Subsystem: "pipeline",
		Name:      "comments_processed_total",
		Help:      "Total number of comments scored by the classifier.",
	})

	commentsEscalated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "perspective",
		Subsystem: "pipeline",
		Name:      "comments_escalated_total",
		Help:      "Total number of comments escalated to moderators.",
	})

	classifierErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "perspective",
		Subsystem: "pipeline",
		Name:      "classifier_errors_total",
		Help:      "Total number of comments abandoned due to classifier failures.",
	})

	feedRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "perspective",
		Subsystem: "feed",
		Name:      "retries_total",
		Help:      "Total number of backoff-and-resubscribe cycles after transient feed failures.",
	})

	reportsFiled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "perspective",
		Subsystem: "pipeline",
		Name:      "reports_filed_total",
		Help:      "Total number of moderator reports filed.",
	})

	webhookDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "perspective",
		Subsystem: "webhook",
		Name:      "deliveries_total",
		Help:      "Total number of webhook delivery attempts by outcome.",
	}, []string{"outcome"})

	collectors := []prometheus.Collector{
		commentsProcessed,
		commentsEscalated,
		classifierErrors,
		feedRetries,
		reportsFiled,
		webhookDeliveries,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:          registry,
		commentsProcessed: commentsProcessed,
		commentsEscalated: commentsEscalated,
		classifierErrors:  classifierErrors,
		feedRetries:       feedRetries,
		reportsFiled:      reportsFiled,
		webhookDeliveries: webhookDeliveries,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveComment records a scored comment and whether it escalated.
func (c *Collector) ObserveComment(escalated bool) {
	if c == nil {
		return
	}
	c.commentsProcessed.Inc()
	if escalated {
		c.commentsEscalated.Inc()
	}
}

// ObserveClassifierError records a comment abandoned on classifier failure.
func (c *Collector) ObserveClassifierError() {
	if c == nil {
		return
	}
	c.classifierErrors.Inc()
}

// ObserveFeedRetry records a backoff cycle after a transient feed failure.
func (c *Collector) ObserveFeedRetry() {
	if c == nil {
		return
	}
	c.feedRetries.Inc()
}

// ObserveReport records a filed moderator report.
func (c *Collector) ObserveReport() {
	if c == nil {
		return
	}
	c.reportsFiled.Inc()
}

// ObserveDelivery records a webhook delivery outcome.
func (c *Collector) ObserveDelivery(success bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.webhookDeliveries.WithLabelValues(outcome).Inc()
}
