package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/metrics"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/models"
)

// maxBodyChars bounds how much of a comment body is echoed into the log.
const maxBodyChars = 1500

// Reporter files a moderator report for a comment. Implementations are
// fire-and-forget from the policy's perspective: a failed report is logged
// and never interrupts stream processing.
type Reporter interface {
	Report(ctx context.Context, commentID, reason string) error
}

// Decision is the outcome of scoring one comment against the thresholds.
type Decision struct {
	Summary   string
	Escalate  bool
	Triggered []models.Attribute
}

// Decide compares every scored attribute against its threshold. An attribute
// triggers when its score meets or exceeds the threshold; ties escalate. The
// summary lists every attribute as a percentage regardless of triggering.
func Decide(scores models.ScoreSet, thresholds models.ThresholdTable) Decision {
	var b strings.Builder
	var triggered []models.Attribute

	for _, attr := range models.AllAttributes() {
		score, ok := scores[attr]
		if !ok {
			continue
		}

		fmt.Fprintf(&b, "%-16s: %6.2f%%\n", attr, score*100)

		threshold, ok := thresholds[attr]
		if ok && score >= threshold {
			triggered = append(triggered, attr)
		}
	}

	return Decision{
		Summary:   b.String(),
		Escalate:  len(triggered) > 0,
		Triggered: triggered,
	}
}

// Policy routes scored comments to the log and, on escalation, to the
// moderator report action.
type Policy struct {
	thresholds models.ThresholdTable
	reporter   Reporter
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// NewPolicy creates a policy over an immutable threshold table. reporter may
// be nil, in which case escalations are logged but not reported.
func NewPolicy(thresholds models.ThresholdTable, reporter Reporter, logger *slog.Logger, collector *metrics.Collector) *Policy {
	return &Policy{
		thresholds: thresholds,
		reporter:   reporter,
		logger:     logger,
		metrics:    collector,
	}
}

// Process evaluates one comment's scores. The full score summary is logged at
// debug level, raised to info when any attribute triggers. Each triggering
// attribute files its own moderator report.
func (p *Policy) Process(ctx context.Context, comment models.Comment, scores models.ScoreSet) Decision {
	decision := Decide(scores, p.thresholds)

	content := fmt.Sprintf("New comment %s by %s\nhttps://www.reddit.com%s\n%s\n\n%s",
		comment.ID,
		comment.Author,
		anonymizePermalink(comment.Permalink),
		truncateBody(comment.Body),
		decision.Summary,
	)

	if decision.Escalate {
		p.logger.Info(content)
	} else {
		p.logger.Debug(content)
	}

	for _, attr := range decision.Triggered {
		reason := fmt.Sprintf("%s: %.2f%% | threshold: %.2f%%", attr, scores[attr]*100, p.thresholds[attr]*100)

		if p.reporter == nil {
			p.logger.Debug("reporting disabled, skipping moderator report", "comment_id", comment.ID, "reason", reason)
			continue
		}

		if err := p.reporter.Report(ctx, comment.ID, reason); err != nil {
			p.logger.Warn("moderator report failed", "comment_id", comment.ID, "attribute", string(attr), "error", err)
			continue
		}
		p.metrics.ObserveReport()
	}

	p.metrics.ObserveComment(decision.Escalate)

	return decision
}

// anonymizePermalink blanks the post title slug so log lines do not leak the
// submission title. Reddit comment permalinks have the form
// /r/<sub>/comments/<post_id>/<slug>/<comment_id>/.
func anonymizePermalink(permalink string) string {
	parts := strings.Split(permalink, "/")
	if len(parts) > 5 {
		parts[5] = "_"
	}
	return strings.Join(parts, "/")
}

func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= maxBodyChars {
		return body
	}
	return string(runes[:maxBodyChars])
}
