package moderation

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"log/slog"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecideBoundary(t *testing.T) {
	thresholds := models.ThresholdTable{models.AttributeToxicity: 0.9}

	tests := []struct {
		name     string
		score    float64
		escalate bool
	}{
		{name: "above threshold", score: 0.91, escalate: true},
		{name: "equal to threshold escalates", score: 0.9, escalate: true},
		{name: "below threshold", score: 0.89, escalate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Decide(models.ScoreSet{models.AttributeToxicity: tt.score}, thresholds)
			if decision.Escalate != tt.escalate {
				t.Errorf("Decide(%.2f) escalate = %t, want %t", tt.score, decision.Escalate, tt.escalate)
			}
		})
	}
}

func TestDecideSummaryListsEveryAttribute(t *testing.T) {
	scores := models.ScoreSet{
		models.AttributeToxicity:       0.12,
		models.AttributeSevereToxicity: 0.034,
		models.AttributeIdentityAttack: 0.5,
		models.AttributeInsult:         0.91,
		models.AttributeThreat:         0.07,
	}
	thresholds := models.ThresholdTable{models.AttributeInsult: 0.9}

	decision := Decide(scores, thresholds)

	for _, attr := range models.AllAttributes() {
		if !strings.Contains(decision.Summary, string(attr)) {
			t.Errorf("summary missing attribute %s: %q", attr, decision.Summary)
		}
	}
	if !strings.Contains(decision.Summary, " 12.00%") {
		t.Errorf("summary missing percentage rendering: %q", decision.Summary)
	}

	if len(decision.Triggered) != 1 || decision.Triggered[0] != models.AttributeInsult {
		t.Fatalf("triggered = %v, want [INSULT]", decision.Triggered)
	}
}

type fakeReporter struct {
	calls []reportCall
	err   error
}

type reportCall struct {
	commentID string
	reason    string
}

func (f *fakeReporter) Report(_ context.Context, commentID, reason string) error {
	f.calls = append(f.calls, reportCall{commentID: commentID, reason: reason})
	return f.err
}

func TestProcessFilesOneReportPerTriggeredAttribute(t *testing.T) {
	thresholds := models.ThresholdTable{
		models.AttributeToxicity: 0.9,
		models.AttributeThreat:   0.8,
		models.AttributeInsult:   0.95,
	}
	reporter := &fakeReporter{}
	policy := NewPolicy(thresholds, reporter, discardLogger(), nil)

	scores := models.ScoreSet{
		models.AttributeToxicity: 0.95,
		models.AttributeThreat:   0.85,
		models.AttributeInsult:   0.10,
	}
	comment := models.Comment{ID: "abc123", Author: "someone", Body: "text", Permalink: "/r/test/comments/xyz/title/abc123/"}

	decision := policy.Process(context.Background(), comment, scores)

	if !decision.Escalate {
		t.Fatal("expected escalation")
	}
	if len(reporter.calls) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reporter.calls))
	}

	if reporter.calls[0].commentID != "abc123" {
		t.Errorf("report filed against %q, want abc123", reporter.calls[0].commentID)
	}
	if want := "TOXICITY: 95.00% | threshold: 90.00%"; reporter.calls[0].reason != want {
		t.Errorf("reason = %q, want %q", reporter.calls[0].reason, want)
	}
	if want := "THREAT: 85.00% | threshold: 80.00%"; reporter.calls[1].reason != want {
		t.Errorf("reason = %q, want %q", reporter.calls[1].reason, want)
	}
}

func TestProcessContinuesWhenReportFails(t *testing.T) {
	thresholds := models.ThresholdTable{
		models.AttributeToxicity: 0.5,
		models.AttributeThreat:   0.5,
	}
	reporter := &fakeReporter{err: errors.New("api down")}
	policy := NewPolicy(thresholds, reporter, discardLogger(), nil)

	scores := models.ScoreSet{
		models.AttributeToxicity: 0.9,
		models.AttributeThreat:   0.9,
	}

	decision := policy.Process(context.Background(), models.Comment{ID: "x"}, scores)

	if !decision.Escalate {
		t.Fatal("expected escalation despite report failures")
	}
	if len(reporter.calls) != 2 {
		t.Fatalf("expected both reports attempted, got %d", len(reporter.calls))
	}
}

func TestProcessWithoutReporter(t *testing.T) {
	thresholds := models.ThresholdTable{models.AttributeToxicity: 0.5}
	policy := NewPolicy(thresholds, nil, discardLogger(), nil)

	decision := policy.Process(context.Background(), models.Comment{ID: "x"}, models.ScoreSet{models.AttributeToxicity: 0.9})

	if !decision.Escalate {
		t.Fatal("expected escalation decision even without a reporter")
	}
}

func TestAnonymizePermalink(t *testing.T) {
	tests := []struct {
		name      string
		permalink string
		want      string
	}{
		{
			name:      "standard comment permalink",
			permalink: "/r/golang/comments/1abcd/some_post_title/efgh2/",
			want:      "/r/golang/comments/1abcd/_/efgh2/",
		},
		{
			name:      "short path left untouched",
			permalink: "/r/golang",
			want:      "/r/golang",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := anonymizePermalink(tt.permalink); got != tt.want {
				t.Errorf("anonymizePermalink(%q) = %q, want %q", tt.permalink, got, tt.want)
			}
		})
	}
}

func TestTruncateBodyCountsRunes(t *testing.T) {
	body := strings.Repeat("é", maxBodyChars+10)
	got := truncateBody(body)
	if len([]rune(got)) != maxBodyChars {
		t.Fatalf("truncated body has %d runes, want %d", len([]rune(got)), maxBodyChars)
	}
}
