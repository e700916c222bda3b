package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Slimpush/api-yamdb-final-master/pkg/circuitbreaker"
	"github.com/Slimpush/api-yamdb-final-master/pkg/queue"
)

// ErrQueued is returned when a message could not be delivered now and was
// queued for a later attempt.
var ErrQueued = errors.New("mail queued for retry")

// ResilientSender guards a Sender with a circuit breaker and parks failed
// messages in a retry queue that Run drains.
type ResilientSender struct {
	next       Sender
	breaker    *circuitbreaker.CircuitBreaker
	pending    *queue.Queue[Message]
	interval   time.Duration
	maxRetries int
	logger     *slog.Logger
	now        func() time.Time
}

type ResilientConfig struct {
	RetryInterval time.Duration
	MaxRetries    int
	MaxFailures   int
	OpenTimeout   time.Duration
}

func NewResilientSender(next Sender, cfg ResilientConfig, logger *slog.Logger) *ResilientSender {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 30 * time.Second
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	return &ResilientSender{
		next:       next,
		breaker:    circuitbreaker.NewCircuitBreaker(cfg.MaxFailures, cfg.OpenTimeout),
		pending:    queue.New[Message](),
		interval:   cfg.RetryInterval,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
		now:        time.Now,
	}
}

// Send attempts delivery once. On failure the message is queued and the
// returned error wraps both ErrQueued and the delivery error.
func (s *ResilientSender) Send(ctx context.Context, msg Message) error {
	err := s.attempt(ctx, msg)
	if err == nil {
		return nil
	}
	s.logger.Warn("mail delivery failed",
		"subject", msg.Subject, "breaker", s.breaker.GetState().String(), "error", err)
	if s.maxRetries <= 0 {
		return err
	}
	s.pending.Enqueue(&queue.Item[Message]{
		ID:         uuid.NewString(),
		Payload:    msg,
		RetryAt:    s.now().Add(s.interval),
		MaxRetries: s.maxRetries,
	})
	return fmt.Errorf("%w: %w", ErrQueued, err)
}

// Flush retries every due message once. Messages that fail again are
// rescheduled with linear backoff until they run out of attempts.
func (s *ResilientSender) Flush(ctx context.Context) {
	for _, item := range s.pending.DrainDue() {
		err := s.attempt(ctx, item.Payload)
		if err == nil {
			s.logger.Info("queued mail delivered", "id", item.ID, "subject", item.Payload.Subject)
			continue
		}

		item.RetryCount++
		if item.Exhausted() {
			s.logger.Error("dropping undeliverable mail",
				"id", item.ID, "subject", item.Payload.Subject, "attempts", item.RetryCount, "error", err)
			continue
		}
		item.RetryAt = s.now().Add(s.interval * time.Duration(item.RetryCount+1))
		s.pending.Enqueue(item)
	}
}

// Pending returns the number of queued messages.
func (s *ResilientSender) Pending() int {
	return s.pending.Size()
}

// Run flushes the queue every interval until ctx is done.
func (s *ResilientSender) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *ResilientSender) attempt(ctx context.Context, msg Message) error {
	return s.breaker.Execute(func() error {
		return s.next.Send(ctx, msg)
	}, nil)
}
