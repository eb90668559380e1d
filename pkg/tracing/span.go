// Package tracing provides minimal in-process tracing. A span measures one
// operation; child spans attach to the parent found in the context. Finished
// span trees are emitted through slog, one record per span.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type ctxKey struct{}

// Span is a timed operation. Create one with Start or Child; call End exactly
// once. Attribute writes and child registration are safe across goroutines.
type Span struct {
	name    string
	traceID string
	started time.Time
	elapsed time.Duration

	mu       sync.Mutex
	attrs    []slog.Attr
	children []*Span
}

// Start opens a root span tagged with traceID (typically the request ID) and
// returns a context carrying it.
func Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{name: name, traceID: traceID, started: time.Now()}
	return context.WithValue(ctx, ctxKey{}, s), s
}

// Child opens a span under the one carried by ctx. Without a parent in ctx it
// behaves like Start with an empty trace ID.
func Child(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{name: name, started: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		s.traceID = parent.traceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, ctxKey{}, s), s
}

// FromContext returns the span carried by ctx, or nil.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(ctxKey{}).(*Span)
	return s
}

// End freezes the span's duration. Later calls are no-ops.
func (s *Span) End() {
	if s.elapsed == 0 {
		s.elapsed = time.Since(s.started)
	}
}

// Duration returns the frozen duration, or the running duration if the span
// has not ended.
func (s *Span) Duration() time.Duration {
	if s.elapsed != 0 {
		return s.elapsed
	}
	return time.Since(s.started)
}

// SetAttr records a key-value pair emitted with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Emit logs the span and its descendants depth-first. Call it on the root
// after End.
func (s *Span) Emit() {
	s.emit(0)
}

func (s *Span) emit(depth int) {
	s.mu.Lock()
	attrs := make([]slog.Attr, 0, len(s.attrs)+4)
	attrs = append(attrs,
		slog.String("trace_id", s.traceID),
		slog.String("span", s.name),
		slog.Int64("duration_ms", s.Duration().Milliseconds()),
		slog.Int("depth", depth),
	)
	attrs = append(attrs, s.attrs...)
	children := s.children
	s.mu.Unlock()

	slog.LogAttrs(context.Background(), slog.LevelDebug, "span", attrs...)
	for _, c := range children {
		c.emit(depth + 1)
	}
}
