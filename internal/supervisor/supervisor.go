package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/feed"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/metrics"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/models"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/moderation"
)

const (
	// Backoff after a transient feed failure is a randomized whole-second
	// duration in [backoffMinSeconds, backoffMinSeconds+backoffSpreadSeconds)
	// to avoid synchronized reconnects.
	backoffMinSeconds    = 25
	backoffSpreadSeconds = 10
)

// Classifier scores a comment body against the toxicity attributes.
type Classifier interface {
	Score(ctx context.Context, text string) (models.ScoreSet, error)
}

// Supervisor drives the comment stream through the classifier and escalation
// policy. Transient feed failures back off and resume; any other error is
// fatal and propagates. A classifier failure abandons that one comment and
// the loop continues, so a bad comment never stalls the stream.
type Supervisor struct {
	stream     feed.Stream
	classifier Classifier
	policy     *moderation.Policy
	logger     *slog.Logger
	metrics    *metrics.Collector

	// Seams for tests.
	backoff func() time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// New wires a supervisor over the given stream, classifier and policy.
func New(stream feed.Stream, classifier Classifier, policy *moderation.Policy, logger *slog.Logger, collector *metrics.Collector) *Supervisor {
	return &Supervisor{
		stream:     stream,
		classifier: classifier,
		policy:     policy,
		logger:     logger,
		metrics:    collector,
		backoff: func() time.Duration {
			return time.Duration(backoffMinSeconds+rand.Intn(backoffSpreadSeconds)) * time.Second
		},
		sleep: sleepContext,
	}
}

// Run consumes the feed until ctx is cancelled or a fatal error occurs.
// Cancellation returns nil; a fatal error is logged and returned.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("supervisor running")

	for {
		comment, err := s.stream.Next(ctx)

		switch {
		case err == nil:
			s.process(ctx, comment)

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			s.logger.Info("supervisor stopping", "reason", "shutdown")
			return nil

		case feed.IsTransient(err):
			delay := s.backoff()
			s.logger.Warn("server error from feed, backing off", "retry_in_s", int(delay.Seconds()), "error", err)
			s.metrics.ObserveFeedRetry()

			if err := s.sleep(ctx, delay); err != nil {
				s.logger.Info("supervisor stopping", "reason", "shutdown")
				return nil
			}

		default:
			s.logger.Error("fatal feed error, terminating", "error", err)
			return err
		}
	}
}

// process routes one comment through classifier and policy.
func (s *Supervisor) process(ctx context.Context, comment models.Comment) {
	logger := s.logger.With("trace_id", uuid.NewString(), "comment_id", comment.ID)
	logger.Debug("comment received", "author", comment.Author)

	scores, err := s.classifier.Score(ctx, comment.Body)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("scoring failed, abandoning comment", "error", err)
		s.metrics.ObserveClassifierError()
		return
	}

	s.policy.Process(ctx, comment, scores)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
