package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/config"
)

const (
	defaultTokenEndpoint  = "https://www.reddit.com/api/v1/access_token"
	defaultReportEndpoint = "https://oauth.reddit.com/api/report"

	// Refresh the access token this long before Reddit expires it.
	tokenExpiryMargin = time.Minute
)

// RedditReporter files reports through the Reddit API using a moderator
// account, which enables free-form report reasons. Tokens are obtained with
// the OAuth2 password grant and cached until shortly before expiry.
type RedditReporter struct {
	client *http.Client
	cfg    config.RedditConfig
	logger *slog.Logger

	tokenEndpoint  string
	reportEndpoint string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	now func() time.Time
}

// NewRedditReporter creates a reporter authenticated as the configured
// moderator account.
func NewRedditReporter(cfg config.RedditConfig, logger *slog.Logger) *RedditReporter {
	return &RedditReporter{
		client:         &http.Client{Timeout: 30 * time.Second},
		cfg:            cfg,
		logger:         logger,
		tokenEndpoint:  defaultTokenEndpoint,
		reportEndpoint: defaultReportEndpoint,
		now:            time.Now,
	}
}

// Report files one report against a comment with a free-text reason.
func (r *RedditReporter) Report(ctx context.Context, commentID, reason string) error {
	token, err := r.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("reddit auth: %w", err)
	}

	form := url.Values{
		"api_type": {"json"},
		"thing_id": {"t1_" + commentID},
		"reason":   {reason},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.reportEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("reddit report: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("reddit report: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit report: unexpected status %d", resp.StatusCode)
	}

	r.logger.Debug("filed moderator report", "comment_id", commentID)
	return nil
}

// accessToken returns a cached token or fetches a fresh one via the password
// grant.
func (r *RedditReporter) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && r.now().Before(r.tokenExpiry.Add(-tokenExpiryMargin)) {
		return r.token, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {r.cfg.Username},
		"password":   {r.cfg.Password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.SetBasicAuth(r.cfg.ClientID, r.cfg.ClientSecret)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string  `json:"access_token"`
		ExpiresIn   float64 `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	r.token = parsed.AccessToken
	r.tokenExpiry = r.now().Add(time.Duration(parsed.ExpiresIn * float64(time.Second)))

	r.logger.Debug("refreshed reddit access token", "expires_in_s", parsed.ExpiresIn)
	return r.token, nil
}
