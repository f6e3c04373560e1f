package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/MrEthical07/authcore/account"
)

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event account.AuditEvent)
}

// ErrorHandler is told about events a sink failed to deliver.
type ErrorHandler func(event account.AuditEvent, err error)

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, account.AuditEvent) {}

// StoreSink appends events to an account.AuditLog.
type StoreSink struct {
	log     account.AuditLog
	onError ErrorHandler
}

func NewStoreSink(log account.AuditLog, onError ErrorHandler) *StoreSink {
	return &StoreSink{log: log, onError: onError}
}

func (s *StoreSink) Emit(ctx context.Context, event account.AuditEvent) {
	if s == nil || s.log == nil {
		return
	}
	if err := s.log.Append(ctx, &event); err != nil && s.onError != nil {
		s.onError(event, err)
	}
}

// MultiSink fans each event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event account.AuditEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan account.AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan account.AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event account.AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan account.AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event account.AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(append(data, '\n'))
}
