// Package verification owns the single-use email code lifecycle: issue,
// spend, sweep.
package verification

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/xcenweb/lextrade/internal/apperr"
	"github.com/xcenweb/lextrade/internal/metrics"
	"github.com/xcenweb/lextrade/internal/notify"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Store is the slice of the relational store this service needs.
type Store interface {
	InsertVerificationCode(ctx context.Context, target, purpose, code string, expiresAt time.Time) error
	ConsumeVerificationCode(ctx context.Context, target, code string, now time.Time) (bool, error)
	SweepVerificationCodes(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	Store   Store
	Sink    notify.Sink
	Logger  *slog.Logger
	CodeTTL time.Duration
	Codes   CodeGenerator
	Clock   Clock
}

func NewService(store Store, sink notify.Sink, logger *slog.Logger, codeTTL time.Duration) *Service {
	return &Service{
		Store:   store,
		Sink:    sink,
		Logger:  logger,
		CodeTTL: codeTTL,
		Codes:   RandomCodeGenerator{},
		Clock:   systemClock{},
	}
}

// Issue creates a fresh code for target and hands it to the sink. The code
// never reaches the API caller. Outstanding codes for the same target are
// left alone; each spends independently.
func (s *Service) Issue(ctx context.Context, target, purpose string) error {
	normalized, err := NormalizeEmail(target)
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid email address")
	}

	code, err := s.Codes.Generate()
	if err != nil {
		return err
	}

	expiresAt := s.Clock.Now().Add(s.CodeTTL)
	if err := s.Store.InsertVerificationCode(ctx, normalized, purpose, code, expiresAt); err != nil {
		return fmt.Errorf("insert verification code: %w", err)
	}

	if err := s.Sink.SendVerificationCode(ctx, normalized, code, purpose); err != nil {
		return fmt.Errorf("dispatch verification code: %w", err)
	}

	metrics.CodesIssued.Inc()
	s.Logger.Info("verification code issued",
		slog.String("target", normalized),
		slog.String("purpose", purpose),
	)
	return nil
}

// Verify spends one live code for (target, code). Success happens exactly
// once per code; replays and expired codes fail the same way.
func (s *Service) Verify(ctx context.Context, target, code string) error {
	normalized, err := NormalizeEmail(target)
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid email address")
	}

	consumed, err := s.Store.ConsumeVerificationCode(ctx, normalized, code, s.Clock.Now())
	if err != nil {
		return fmt.Errorf("consume verification code: %w", err)
	}
	if !consumed {
		metrics.CodesVerified.WithLabelValues("rejected").Inc()
		return apperr.New(apperr.KindCodeInvalid, "verification code invalid or expired")
	}

	metrics.CodesVerified.WithLabelValues("ok").Inc()
	return nil
}

// Sweep drops expired and spent codes, returning how many went.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.Store.SweepVerificationCodes(ctx, s.Clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep verification codes: %w", err)
	}
	if n > 0 {
		metrics.CodesSwept.Add(float64(n))
		s.Logger.Debug("verification codes swept", slog.Int64("removed", n))
	}
	return n, nil
}
