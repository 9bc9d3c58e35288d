/*
scheduler.go - Stale generation sweeper

PURPOSE:
  Regeneration rollback is best-effort: if the process dies while a
  document is generating, nothing restores its status and every later
  regeneration is refused with 409. The sweeper periodically marks
  documents that have been generating for longer than MaxAge as failed,
  which makes them eligible for regeneration again.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Stop waits for an in-flight sweep to finish

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 5 minutes)
  - MaxAge:        How long a generation may run (default: 10 minutes)

USAGE:
  sweeper := NewGenerationSweeper(store, logger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - store/sqlite: FailStaleGenerations
  - document/service.go: Regeneration
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StaleGenerationStore is the store call the sweeper needs.
type StaleGenerationStore interface {
	FailStaleGenerations(ctx context.Context, before time.Time, cause string) (int64, error)
}

// GenerationSweeper releases documents stuck in generating.
type GenerationSweeper struct {
	Store         StaleGenerationStore
	CheckInterval time.Duration
	MaxAge        time.Duration

	logger *zap.Logger
	now    func() time.Time
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewGenerationSweeper creates a new sweeper.
func NewGenerationSweeper(store StaleGenerationStore, logger *zap.Logger) *GenerationSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationSweeper{
		Store:         store,
		CheckInterval: 5 * time.Minute,
		MaxAge:        10 * time.Minute,
		logger:        logger,
		now:           time.Now,
	}
}

// Start begins sweeping.
func (gs *GenerationSweeper) Start() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ticker != nil {
		return
	}
	gs.ticker = time.NewTicker(gs.CheckInterval)
	gs.stop = make(chan struct{})
	gs.wg.Add(1)

	go gs.run()

	gs.logger.Info("generation sweeper started",
		zap.Duration("interval", gs.CheckInterval),
		zap.Duration("max_age", gs.MaxAge),
	)
}

// Stop stops the sweeper.
func (gs *GenerationSweeper) Stop() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ticker == nil {
		return
	}
	gs.ticker.Stop()
	close(gs.stop)
	gs.wg.Wait()
	gs.ticker = nil
	gs.logger.Info("generation sweeper stopped")
}

func (gs *GenerationSweeper) run() {
	defer gs.wg.Done()

	gs.Sweep(context.Background())

	for {
		select {
		case <-gs.ticker.C:
			gs.Sweep(context.Background())
		case <-gs.stop:
			return
		}
	}
}

// Sweep fails every generation older than MaxAge and returns how many.
func (gs *GenerationSweeper) Sweep(ctx context.Context) int64 {
	cutoff := gs.now().Add(-gs.MaxAge)
	n, err := gs.Store.FailStaleGenerations(ctx, cutoff, "generation did not finish within "+gs.MaxAge.String())
	if err != nil {
		gs.logger.Error("sweep failed", zap.String("op", "api.Sweep"), zap.Error(err))
		return 0
	}
	if n > 0 {
		gs.logger.Warn("released stale generations", zap.String("op", "api.Sweep"), zap.Int64("documents", n))
	}
	return n
}
