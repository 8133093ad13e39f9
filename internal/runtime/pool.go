package runtime

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/KyroDB/kyroql/internal/engine"
	"github.com/KyroDB/kyroql/internal/ir"
)

type job struct {
	ctx   context.Context
	env   ir.Envelope
	reply chan jobResult
}

type jobResult struct {
	resp engine.Response
	err  error
}

// pool is a bounded, named worker group backed by a single buffered channel.
// Workers loop on the channel until it is closed, draining whatever is
// already queued before exiting (same shutdown contract as the teacher's
// trace.Buffer flush loop: stop accepting, finish what's in flight).
type pool struct {
	name     string
	capacity int
	tx       chan job
	wg       *errgroup.Group
	logger   *slog.Logger
}

func startPool(name string, workers, capacity int, eng *engine.Engine, logger *slog.Logger) *pool {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	var g errgroup.Group
	p := &pool{
		name:     name,
		capacity: capacity,
		tx:       make(chan job, capacity),
		wg:       &g,
		logger:   logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Go(func() error {
			p.run(eng)
			return nil
		})
	}
	return p
}

func (p *pool) run(eng *engine.Engine) {
	for j := range p.tx {
		resp, err := eng.Execute(j.ctx, j.env)
		j.reply <- jobResult{resp: resp, err: err}
	}
}

// trySubmit enqueues j without blocking, matching the teacher/original's
// try_send semantics: a full queue is backpressure, never a block point.
// A send to a channel closed concurrently by shutdown panics; recovered
// here and reported as disconnection rather than propagated.
func (p *pool) trySubmit(j job, path ExecutionPath) (err error) {
	defer func() {
		if recover() != nil {
			err = &ErrDisconnected{Path: path}
		}
	}()
	select {
	case p.tx <- j:
		return nil
	default:
		return &ErrQueueFull{Path: path, Capacity: p.capacity}
	}
}

// shutdown closes the intake channel and waits for every worker to drain
// its remaining queued jobs and exit.
func (p *pool) shutdown() {
	close(p.tx)
	_ = p.wg.Wait()
}

// queueDepth reports how many jobs are currently buffered, waiting for a
// worker.
func (p *pool) queueDepth() int {
	return len(p.tx)
}
