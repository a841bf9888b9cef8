package perspective

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/config"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(endpoint string) *Client {
	return NewClient(config.PerspectiveConfig{
		APIKey:   "test-key",
		Endpoint: endpoint,
		// Effectively unthrottled for tests.
		RequestsPerSecond: 1000,
	}, "golang", discardLogger())
}

func fullResponse() string {
	return `{
		"attributeScores": {
			"TOXICITY":        {"summaryScore": {"value": 0.91}},
			"SEVERE_TOXICITY": {"summaryScore": {"value": 0.12}},
			"IDENTITY_ATTACK": {"summaryScore": {"value": 0.05}},
			"INSULT":          {"summaryScore": {"value": 0.44}},
			"THREAT":          {"summaryScore": {"value": 0.02}}
		}
	}`
}

func TestScoreParsesAllAttributes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fullResponse()))
	}))
	defer ts.Close()

	scores, err := newTestClient(ts.URL).Score(context.Background(), "some comment")
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}

	if len(scores) != len(models.AllAttributes()) {
		t.Fatalf("got %d scores, want %d", len(scores), len(models.AllAttributes()))
	}
	if scores[models.AttributeToxicity] != 0.91 {
		t.Errorf("TOXICITY = %v, want 0.91", scores[models.AttributeToxicity])
	}
	if scores[models.AttributeThreat] != 0.02 {
		t.Errorf("THREAT = %v, want 0.02", scores[models.AttributeThreat])
	}
}

func TestScoreSendsExpectedRequest(t *testing.T) {
	var captured struct {
		query string
		body  analyzeRequest
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.query = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(fullResponse()))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Score(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}

	if captured.query != "test-key" {
		t.Errorf("key query param = %q, want test-key", captured.query)
	}
	if len(captured.body.Languages) != 1 || captured.body.Languages[0] != "en" {
		t.Errorf("languages = %v, want [en]", captured.body.Languages)
	}
	if captured.body.CommunityID != "reddit.com/r/golang" {
		t.Errorf("communityId = %q, want reddit.com/r/golang", captured.body.CommunityID)
	}
	if captured.body.Comment.Text != "hello world" {
		t.Errorf("comment text = %q, want hello world", captured.body.Comment.Text)
	}
	if len(captured.body.RequestedAttributes) != len(models.AllAttributes()) {
		t.Errorf("requested %d attributes, want %d", len(captured.body.RequestedAttributes), len(models.AllAttributes()))
	}
}

func TestScoreFailsOnMissingAttribute(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"attributeScores": {"TOXICITY": {"summaryScore": {"value": 0.5}}}}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Score(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error for incomplete response, got nil")
	}

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
}

func TestScoreFailsOnNonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Score(context.Background(), "text")

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if providerErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", providerErr.StatusCode)
	}
}

func TestScoreFailsOnMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Score(context.Background(), "text")

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
}

func TestScoreHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(config.PerspectiveConfig{
		APIKey:            "k",
		Endpoint:          "http://perspective.invalid",
		RequestsPerSecond: 0.001,
	}, "golang", discardLogger())

	if _, err := client.Score(ctx, "text"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}
