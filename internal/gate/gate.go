package gate

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Gate bounds how many operations run at once. Excess submissions wait and
// are admitted in submission order.
type Gate struct {
	sem     *semaphore.Weighted
	limit   int
	queued  atomic.Int64
	running atomic.Int64
	logger  zerolog.Logger
}

func New(limit int, logger zerolog.Logger) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{
		sem:    semaphore.NewWeighted(int64(limit)),
		limit:  limit,
		logger: logger,
	}
}

func (g *Gate) Limit() int { return g.limit }

// Queued is the number of submissions waiting for a slot.
func (g *Gate) Queued() int { return int(g.queued.Load()) }

func (g *Gate) Running() int { return int(g.running.Load()) }

// Submit runs op once a slot is free. If ctx ends while waiting, op never
// runs and the context error is returned. Once admitted, op runs to
// completion.
func Submit[T any](ctx context.Context, g *Gate, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if !g.sem.TryAcquire(1) {
		queued := g.queued.Add(1)
		g.logger.Debug().
			Int64("queued", queued).
			Int64("running", g.running.Load()).
			Msg("requests are waiting for a free slot")
		err := g.sem.Acquire(ctx, 1)
		g.queued.Add(-1)
		if err != nil {
			return zero, fmt.Errorf("failed to acquire slot: %w", err)
		}
	}

	g.running.Add(1)
	defer func() {
		g.running.Add(-1)
		g.sem.Release(1)
	}()

	return op(ctx)
}
