package exporters

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter writes finished spans as JSON lines. It is the fallback
// when no collector endpoint is configured, so spans stay visible in local
// development without an OTLP backend.
type ConsoleExporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewConsoleExporter creates a console exporter writing to w
func NewConsoleExporter(w io.Writer) *ConsoleExporter {
	return &ConsoleExporter{enc: json.NewEncoder(w)}
}

type consoleSpan struct {
	Name       string    `json:"name"`
	TraceID    string    `json:"trace_id"`
	SpanID     string    `json:"span_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	StartAt    time.Time `json:"start_at"`
	DurationMS int64     `json:"duration_ms"`
}

func (c *ConsoleExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, span := range spans {
		sc := span.SpanContext()
		line := consoleSpan{
			Name:       span.Name(),
			TraceID:    sc.TraceID().String(),
			SpanID:     sc.SpanID().String(),
			StartAt:    span.StartTime().UTC(),
			DurationMS: span.EndTime().Sub(span.StartTime()).Milliseconds(),
		}
		if parent := span.Parent(); parent.IsValid() {
			line.ParentID = parent.SpanID().String()
		}
		if err := c.enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func (c *ConsoleExporter) Shutdown(ctx context.Context) error {
	return nil
}
