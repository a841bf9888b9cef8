package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Handler is a slog.Handler that mirrors records at or above a minimum level
// into a Sink. It renders each record to a single text line; batching and
// delivery pacing are the sink's concern.
type Handler struct {
	sink  *Sink
	level slog.Level

	// attrText holds attrs bound via WithAttrs, already rendered with the
	// group prefix in effect when they were added.
	attrText string
	groups   []string
}

// NewHandler wraps sink as a slog handler with the given minimum level.
func NewHandler(sink *Sink, level slog.Level) *Handler {
	return &Handler{sink: sink, level: level}
}

// Enabled reports whether records at the given level are mirrored.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle renders the record and hands it to the sink.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.attrText)

	r.Attrs(func(attr slog.Attr) bool {
		writeAttr(&b, h.groups, attr)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	h.sink.Emit(&Record{Level: r.Level, Time: ts, Message: b.String()})
	return nil
}

// WithAttrs returns a handler that includes attrs on every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	var b strings.Builder
	for _, attr := range attrs {
		writeAttr(&b, h.groups, attr)
	}

	clone := *h
	clone.attrText = h.attrText + b.String()
	return &clone
}

// WithGroup returns a handler that qualifies subsequent attribute keys with
// name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func writeAttr(b *strings.Builder, groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	fmt.Fprintf(b, " %s=%v", key, attr.Value)
}
