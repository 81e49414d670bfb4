// Package idempotency удаляет ключи идемпотентности с истёкшим TTL.
package idempotency

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
)

const (
	defaultInterval  = 10 * time.Minute
	defaultBatchSize = 500
)

// Option настраивает Janitor.
type Option func(*Janitor)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(j *Janitor) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithMetrics задаёт метрики очистки.
func WithMetrics(m *metrics.IdempotencyCleanupMetrics) Option {
	return func(j *Janitor) { j.metrics = m }
}

// WithClock подменяет часы.
func WithClock(now func() time.Time) Option {
	return func(j *Janitor) {
		if now != nil {
			j.now = now
		}
	}
}

// WithInterval задаёт паузу между проходами.
func WithInterval(interval time.Duration) Option {
	return func(j *Janitor) {
		if interval > 0 {
			j.interval = interval
		}
	}
}

// WithBatchSize ограничивает число ключей, удаляемых одним запросом.
func WithBatchSize(size int) Option {
	return func(j *Janitor) {
		if size > 0 {
			j.batchSize = size
		}
	}
}

// Janitor по расписанию удаляет просроченные записи идемпотентности.
type Janitor struct {
	repo      domain.IdempotencyRepository
	logger    *log.Entry
	metrics   *metrics.IdempotencyCleanupMetrics
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewJanitor создаёт Janitor поверх repo.
func NewJanitor(repo domain.IdempotencyRepository, opts ...Option) *Janitor {
	j := &Janitor{
		repo:      repo,
		logger:    log.WithField("component", "idempotency-janitor"),
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run выполняет проход сразу и затем каждые interval до отмены ctx.
func (j *Janitor) Run(ctx context.Context) {
	if j.repo == nil {
		j.logger.Warn("idempotency janitor disabled: no repository")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (j *Janitor) runOnce(ctx context.Context) {
	deleted, err := j.Sweep(ctx, j.now())
	if errors.Is(err, context.Canceled) {
		return
	}
	j.metrics.RecordRun(err, deleted)

	switch {
	case err != nil:
		j.logger.WithError(err).WithField("deleted", deleted).Warn("idempotency sweep failed")
	case deleted > 0:
		j.logger.WithField("deleted", deleted).Info("expired idempotency keys removed")
	}
}

// Sweep удаляет записи с TTL не позже before, пока очередная порция не окажется неполной.
// Нулевой before означает текущее время.
func (j *Janitor) Sweep(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = j.now()
	}

	total := 0
	for ctx.Err() == nil {
		n, err := j.repo.DeleteExpired(ctx, before, j.batchSize)
		if err != nil {
			return total, err
		}
		total += n
		j.metrics.AddDeleted(n)
		if n < j.batchSize {
			return total, nil
		}
	}
	return total, ctx.Err()
}
