package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/config"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/models"
)

const (
	defaultBaseURL = "https://www.reddit.com"

	// Reddit's listing endpoint caps at 100 items per request.
	listingLimit = 100

	// How many comment IDs to remember for deduplication across polls.
	seenCapacity = 300
)

// RedditStream polls a subreddit's newest-comments listing and yields
// comments oldest-first. Comments posted during an outage that fall outside
// the newest page are never recovered (at-most-once delivery).
type RedditStream struct {
	client       *http.Client
	baseURL      string
	subreddit    string
	userAgent    string
	pollInterval time.Duration
	logger       *slog.Logger

	pending []models.Comment
	seen    map[string]struct{}
	order   []string
}

// NewRedditStream creates a polling stream for one subreddit.
func NewRedditStream(subreddit string, cfg config.FeedConfig, logger *slog.Logger) *RedditStream {
	return &RedditStream{
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultBaseURL,
		subreddit:    subreddit,
		userAgent:    cfg.UserAgent,
		pollInterval: cfg.PollInterval,
		logger:       logger,
		seen:         make(map[string]struct{}, seenCapacity),
	}
}

// Next returns the next unseen comment, polling until one arrives. A 5xx
// response surfaces as *ServerError; the caller decides how to recover, and
// the next call simply resumes polling from the current position.
func (s *RedditStream) Next(ctx context.Context) (models.Comment, error) {
	for {
		if len(s.pending) > 0 {
			comment := s.pending[0]
			s.pending = s.pending[1:]
			return comment, nil
		}

		comments, err := s.poll(ctx)
		if err != nil {
			return models.Comment{}, err
		}

		if len(comments) == 0 {
			timer := time.NewTimer(s.pollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return models.Comment{}, ctx.Err()
			case <-timer.C:
			}
			continue
		}

		s.pending = comments
	}
}

type listing struct {
	Data struct {
		Children []struct {
			Data redditComment `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditComment struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	Permalink string `json:"permalink"`
}

// poll fetches the newest comments page and returns unseen comments in
// oldest-first order.
func (s *RedditStream) poll(ctx context.Context) ([]models.Comment, error) {
	endpoint := fmt.Sprintf("%s/r/%s/comments.json?limit=%d&raw_json=1", s.baseURL, s.subreddit, listingLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, resp.Body)
		return nil, &ServerError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed: unexpected status %d", resp.StatusCode)
	}

	var parsed listing
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("feed: decode listing: %w", err)
	}

	// The listing is newest-first; walk it backwards to yield oldest-first.
	var comments []models.Comment
	for i := len(parsed.Data.Children) - 1; i >= 0; i-- {
		c := parsed.Data.Children[i].Data
		if c.ID == "" {
			continue
		}
		if _, ok := s.seen[c.ID]; ok {
			continue
		}

		s.markSeen(c.ID)
		comments = append(comments, models.Comment{
			ID:        c.ID,
			Author:    c.Author,
			Body:      c.Body,
			Permalink: c.Permalink,
		})
	}

	if len(comments) > 0 {
		s.logger.Debug("fetched new comments", "subreddit", s.subreddit, "count", len(comments))
	}

	return comments, nil
}

func (s *RedditStream) markSeen(id string) {
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)

	if len(s.order) > seenCapacity {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
}
