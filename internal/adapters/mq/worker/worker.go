// Package worker applies queued alliance events to the store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/pkg/logger"
	"github.com/okian/trainboard/pkg/metrics"
)

// Applier persists the effect of one event.
type Applier interface {
	Apply(ctx context.Context, e model.Event) error
}

// Source yields events to process. The channel closing stops the pool.
type Source interface {
	Dequeue() <-chan model.Event
}

// Pool runs a fixed number of workers draining a Source.
type Pool struct {
	source  Source
	applier Applier
	size    int
	name    string
	logger  logger.Logger

	wg        sync.WaitGroup
	cancel    context.CancelFunc
	startOnce sync.Once
	processed atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a worker pool. Nothing runs until Start.
func NewPool(source Source, applier Applier, opts ...Option) *Pool {
	p := &Pool{
		source:  source,
		applier: applier,
		size:    runtime.NumCPU(),
		name:    "worker-pool",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named(p.name)
	}
	return p
}

// Start launches the workers. Calling it again has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		p.wg.Add(p.size)
		for i := 0; i < p.size; i++ {
			go p.run(ctx, "worker-"+strconv.Itoa(i))
		}
		metrics.UpdateWorkerActiveCount(p.size)
		p.logger.Info(ctx, "worker pool started", logger.Int("workers", p.size))
	})
}

// Stop waits for workers to drain the source. Workers exit once the source
// is closed; if ctx expires first they are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		metrics.UpdateWorkerActiveCount(0)
		return nil
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		<-done
		metrics.UpdateWorkerActiveCount(0)
		return fmt.Errorf("worker pool stop: %w", ctx.Err())
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Processed returns the number of events applied successfully.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns the number of events that failed to apply.
func (p *Pool) Failed() int64 { return p.failed.Load() }

func (p *Pool) run(ctx context.Context, name string) {
	defer p.wg.Done()
	log := p.logger.Named(name)
	events := p.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			p.process(ctx, log, e)
		}
	}
}

func (p *Pool) process(ctx context.Context, log logger.Logger, e model.Event) {
	start := time.Now()
	err := p.applier.Apply(ctx, e)
	metrics.RecordWorkerProcessing(time.Since(start))
	if err != nil {
		p.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordEventFailed(string(e.Kind))
		metrics.RecordErrorByComponent("worker", "apply_failed")
		log.Error(ctx, "event not applied",
			logger.String("event_id", e.EventID),
			logger.String("kind", string(e.Kind)),
			logger.Error(err),
		)
		return
	}
	p.processed.Add(1)
	metrics.RecordEventApplied(string(e.Kind))
}
