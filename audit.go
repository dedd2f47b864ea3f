package goAccount

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/MrEthical07/goAccount/provider"
	"github.com/rs/zerolog"
)

// AuditEvent records one session lifecycle decision. Tokens are never included.
//
// State is the session state the decision left behind. Reason is set when an attempt
// ended as StateFailed.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	Provider  provider.Kind     `json:"provider,omitempty"`
	AttemptID string            `json:"attempt_id,omitempty"`
	State     StateKind         `json:"state"`
	Reason    provider.Reason   `json:"reason,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink delivers events to a buffered channel read by the host.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink returns a sink with the given buffer size. Sizes below one become one.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the channel events are delivered on.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink returns a sink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// LoggerSink writes each event as one structured log record. Events that leave the
// session failed are logged at warn level, the rest at info.
type LoggerSink struct {
	logger zerolog.Logger
}

// NewLoggerSink returns a sink that logs through logger.
func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

func (s *LoggerSink) Emit(_ context.Context, event AuditEvent) {
	e := s.logger.Info()
	if event.State == StateFailed || event.Error != "" {
		e = s.logger.Warn()
	}
	e = e.Time("at", event.Timestamp).
		Str("event_type", event.EventType).
		Stringer("state", event.State).
		Bool("success", event.Success)
	if event.Provider != "" {
		e = e.Str("provider", string(event.Provider))
	}
	if event.AccountID != "" {
		e = e.Str("account_id", event.AccountID)
	}
	if event.AttemptID != "" {
		e = e.Str("attempt_id", event.AttemptID)
	}
	if event.Reason != "" {
		e = e.Str("reason", string(event.Reason))
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	if len(event.Metadata) > 0 {
		meta := zerolog.Dict()
		for k, v := range event.Metadata {
			meta = meta.Str(k, v)
		}
		e = e.Dict("metadata", meta)
	}
	e.Msg("audit")
}
