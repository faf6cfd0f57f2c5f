// Package notify delivers verification codes to their targets. Delivery is
// fire-and-forget from the API's point of view: the code only ever travels
// through a sink, never through a response body.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Sink sends a verification code to an address. purpose is a human-readable
// tag (registration, login, ...) used as the message subject.
type Sink interface {
	SendVerificationCode(ctx context.Context, addr, code, purpose string) error
}

// LogSink records dispatches in the log only. Dev fallback when neither SMTP
// nor Kafka is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) SendVerificationCode(_ context.Context, addr, code, purpose string) error {
	s.Logger.Info("verification code dispatched",
		slog.String("target", addr),
		slog.String("code", code),
		slog.String("purpose", purpose),
	)
	return nil
}

// CaptureSink retains every dispatch in memory for tests.
type CaptureSink struct {
	mu   sync.Mutex
	sent []Dispatch
}

type Dispatch struct {
	Addr    string
	Code    string
	Purpose string
}

func (s *CaptureSink) SendVerificationCode(_ context.Context, addr, code, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Dispatch{Addr: addr, Code: code, Purpose: purpose})
	return nil
}

// Sent returns a copy of all captured dispatches.
func (s *CaptureSink) Sent() []Dispatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Dispatch, len(s.sent))
	copy(out, s.sent)
	return out
}

// Last returns the most recent dispatch, if any.
func (s *CaptureSink) Last() (Dispatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return Dispatch{}, false
	}
	return s.sent[len(s.sent)-1], true
}
