// Package service wires the scoring, ranking and scheduling core to the
// store and the event pipeline. It implements the dependencies of the HTTP
// API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/trainboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/trainboard/internal/adapters/mq/worker"
	"github.com/okian/trainboard/internal/adapters/repository"
	"github.com/okian/trainboard/internal/domain/dedupe"
	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/ranking"
	"github.com/okian/trainboard/internal/domain/schedule"
	"github.com/okian/trainboard/internal/domain/scoring"
	"github.com/okian/trainboard/pkg/logger"
)

// Service is the application layer of the conductor board.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	engine     *scoring.Engine
	aggregator *ranking.Aggregator
	scheduler  *schedule.Scheduler

	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	workerCount  int
	queueSize    int
	dedupeSize   int
	dedupeTTL    time.Duration
	scheduleOpts []schedule.Option
	now          func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  100_000,
		dedupeTTL:   24 * time.Hour,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.engine == nil {
		s.engine = scoring.NewEngine()
	}
	s.aggregator = ranking.NewAggregator(s.engine)
	s.scheduler = schedule.New(s.scheduleOpts...)
	return s
}

// Start creates the event pipeline and launches the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return errors.New("service has no store")
	}

	s.logger.Info(ctx, "starting conductor service...")

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithTTL(s.dedupeTTL),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.eventQueue, &storeApplier{store: s.store, log: s.logger.Named("applier")},
		workerpool.WithWorkers(s.workerCount),
		workerpool.WithName("event-workers"),
	)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "conductor service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the event queue and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping conductor service...")

	var errs []error
	if err := s.eventQueue.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close queue: %w", err))
	}
	if err := s.workerPool.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "conductor service stopped")
	return errors.Join(errs...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.started {
		stats["queueLength"] = s.eventQueue.Len()
		stats["dedupeEntries"] = s.deduper.Size()
		stats["eventsProcessed"] = s.workerPool.Processed()
		stats["eventsFailed"] = s.workerPool.Failed()
	}
	return stats
}

// today returns the reference day for requests that name none.
func (s *Service) today() time.Time {
	return model.Day(s.now())
}

func (s *Service) dateOr(d time.Time) time.Time {
	if d.IsZero() {
		return s.today()
	}
	return d
}
