package perspective

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/config"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/models"
)

// ProviderError reports a failed or malformed response from the scoring
// endpoint. Callers decide whether to retry; the client never does.
type ProviderError struct {
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("perspective: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("perspective: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Client issues scoring requests against the Perspective API. A shared token
// bucket throttles all calls to stay under the provider's request budget.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	community  string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a Perspective client scoped to one subreddit community.
func NewClient(cfg config.PerspectiveConfig, subreddit string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		community:  fmt.Sprintf("reddit.com/r/%s", subreddit),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:     logger,
	}
}

type analyzeRequest struct {
	Languages           []string                      `json:"languages"`
	RequestedAttributes map[models.Attribute]struct{} `json:"requestedAttributes"`
	CommunityID         string                        `json:"communityId"`
	Comment             commentText                   `json:"comment"`
}

type commentText struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	AttributeScores map[string]attributeScore `json:"attributeScores"`
}

type attributeScore struct {
	SummaryScore struct {
		Value float64 `json:"value"`
	} `json:"summaryScore"`
}

// Score requests summary scores for one comment body. It blocks on the token
// bucket before issuing the request and does not retry: a failure abandons
// this comment and is the caller's to handle.
func (c *Client) Score(ctx context.Context, text string) (models.ScoreSet, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("perspective throttle: %w", err)
	}

	requested := make(map[models.Attribute]struct{}, len(models.AllAttributes()))
	for _, attr := range models.AllAttributes() {
		requested[attr] = struct{}{}
	}

	body, err := json.Marshal(analyzeRequest{
		Languages:           []string{"en"},
		RequestedAttributes: requested,
		CommunityID:         c.community,
		Comment:             commentText{Text: text},
	})
	if err != nil {
		return nil, fmt.Errorf("perspective: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s?key=%s", c.endpoint, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("perspective: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("transport: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status"),
		}
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("decode response: %w", err)}
	}

	scores := make(models.ScoreSet, len(models.AllAttributes()))
	for _, attr := range models.AllAttributes() {
		entry, ok := parsed.AttributeScores[string(attr)]
		if !ok {
			return nil, &ProviderError{Err: fmt.Errorf("response missing attribute %s", attr)}
		}
		scores[attr] = entry.SummaryScore.Value
	}

	c.logger.Debug("scored comment", "duration_ms", time.Since(start).Milliseconds())

	return scores, nil
}
