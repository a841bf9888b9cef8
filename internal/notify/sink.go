package notify

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/config"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/metrics"
)

const (
	// MaxContentLength is the Discord message size limit in characters.
	// Combined batches are truncated to this length, never split.
	MaxContentLength = 2000

	defaultRetryAfter = 2 * time.Second
)

// Record is a log record awaiting delivery to the webhook.
type Record struct {
	Level   slog.Level
	Time    time.Time
	Message string
}

func (r Record) render() string {
	return fmt.Sprintf("[%s | %s] %s", r.Level, r.Time.UTC().Format("2006-01-02 15:04:05 MST"), r.Message)
}

// Sink batches log records and delivers them to a Discord webhook. Records
// arriving before the minimum emit interval has elapsed are queued without
// network I/O; the next gate-satisfied emission delivers the whole batch as
// one message. Delivery retries on rate-limit responses for at most the
// configured timeout.
type Sink struct {
	url      string
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
	metrics  *metrics.Collector

	mu       sync.Mutex
	queue    []Record
	lastEmit time.Time

	// Seams for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewSink creates a sink targeting the configured webhook URL.
func NewSink(cfg config.WebhookConfig, collector *metrics.Collector) *Sink {
	return &Sink{
		url:      cfg.URL,
		client:   &http.Client{Timeout: 30 * time.Second},
		interval: cfg.MinEmitInterval,
		timeout:  cfg.DeliveryTimeout,
		metrics:  collector,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Emit queues or delivers a single record. When the minimum interval since
// the last delivery attempt has not elapsed, the record is appended to the
// pending queue and no network call is made.
func (s *Sink) Emit(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit(rec)
}

// Flush drains the pending queue with one emission cycle. Best-effort: a
// failed delivery leaves the queue intact for a later attempt.
func (s *Sink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return
	}
	s.emit(nil)
}

// emit implements one emission cycle. Caller must hold s.mu. A nil record
// forces a flush of the queued batch.
func (s *Sink) emit(rec *Record) {
	now := s.now()

	if rec != nil && now.Sub(s.lastEmit) < s.interval {
		s.queue = append(s.queue, *rec)
		return
	}

	if rec == nil && len(s.queue) == 0 {
		return
	}

	lines := make([]string, 0, len(s.queue))
	for _, queued := range s.queue {
		lines = append(lines, queued.render())
	}

	var recLine string
	if rec != nil {
		recLine = rec.render()
	}

	content := "```" + strings.Join(lines, "\n") + "\n" + recLine + "```"
	success := s.deliver(content)

	// The gate tracks attempt cadence, not success, so attempt frequency
	// stays bounded even under repeated failure.
	s.lastEmit = now

	if success {
		s.queue = nil
	} else if rec != nil {
		s.queue = append(s.queue, *rec)
	}
}

// deliver posts content to the webhook, retrying on rate-limit responses as
// long as the total elapsed time stays under the delivery timeout. Reports
// the outcome as a boolean, never an error.
func (s *Sink) deliver(content string) bool {
	content = truncate(content, MaxContentLength)
	start := s.now()

	for {
		ok, retryAfter := s.post(content)
		if ok {
			s.metrics.ObserveDelivery(true)
			return true
		}

		// Abort if the timeout would be exceeded after sleeping.
		if s.now().Sub(start)+retryAfter > s.timeout {
			s.metrics.ObserveDelivery(false)
			return false
		}

		s.sleep(retryAfter)
	}
}

// post performs a single webhook POST. On a non-success response it returns
// the retry-after duration advertised by the endpoint, defaulting to 2s.
func (s *Sink) post(content string) (bool, time.Duration) {
	resp, err := s.client.PostForm(s.url, url.Values{"content": {content}})
	if err != nil {
		return false, defaultRetryAfter
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, 0
	}

	retryAfter := defaultRetryAfter
	if v := resp.Header.Get("x-ratelimit-reset-after"); v != "" {
		if seconds, err := strconv.ParseFloat(v, 64); err == nil && seconds >= 0 {
			retryAfter = time.Duration(seconds * float64(time.Second))
		}
	}

	return false, retryAfter
}

// truncate bounds s to limit characters. Discord counts characters, so the
// cut is by rune, not byte.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
