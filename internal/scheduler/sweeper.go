// Package scheduler запускает периодическое закрытие истёкших заказов по cron-расписанию.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule раз в сутки в полночь по UTC.
const DefaultSchedule = "0 0 * * *"

// ExpirySweeper закрывает истёкшие на момент now заказы.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper вызывает ExpirySweeper по расписанию.
type Sweeper struct {
	schedule   cron.Schedule
	spec       string
	target     ExpirySweeper
	timeout    time.Duration
	runOnStart bool
	now        func() time.Time
	logger     *zap.Logger
}

// Option настраивает Sweeper.
type Option func(*Sweeper)

// WithTimeout ограничивает длительность одного прохода.
func WithTimeout(d time.Duration) Option {
	return func(s *Sweeper) { s.timeout = d }
}

// WithRunOnStart выполняет проход сразу при запуске, не дожидаясь расписания.
func WithRunOnStart() Option {
	return func(s *Sweeper) { s.runOnStart = true }
}

// WithNow подменяет источник времени.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// NewSweeper разбирает расписание в стандартном cron-формате из пяти полей.
func NewSweeper(spec string, target ExpirySweeper, logger *zap.Logger, opts ...Option) (*Sweeper, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}

	s := &Sweeper{
		schedule: schedule,
		spec:     spec,
		target:   target,
		timeout:  5 * time.Minute,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run блокируется до отмены ctx. Проходы не перекрываются: если предыдущий не завершён, очередной пропускается.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.sweep(ctx) }))

	s.logger.Info("expiry sweeper started", zap.String("schedule", s.spec))
	if s.runOnStart {
		s.sweep(ctx)
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("expiry sweeper stopped")
	return nil
}

func (s *Sweeper) sweep(parent context.Context) {
	if parent.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	n, err := s.target.SweepExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("expiry sweep error", zap.Error(err), zap.Int("expired", n))
		return
	}
	if n > 0 {
		s.logger.Info("expiry sweep finished", zap.Int("expired", n))
	}
}
