package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// parallelRun is the dispatch state of the worker-pool driver.
type parallelRun struct {
	*run
	ready chan *node

	// outstanding counts queued plus running operations. A worker adds
	// ready children before releasing its own slot, so zero means done.
	outstanding atomic.Int64
	closeOnce   sync.Once

	stopped  atomic.Bool
	failOnce sync.Once
	failure  error
}

func (p *parallelRun) release() {
	if p.outstanding.Add(-1) == 0 {
		p.closeOnce.Do(func() { close(p.ready) })
	}
}

// fail stops dispatch and keeps the first failure.
func (p *parallelRun) fail(err error) {
	p.stopped.Store(true)
	p.failOnce.Do(func() { p.failure = err })
}

// runParallel feeds ready operations to a pool of workers. The channel is
// sized to the graph so sends never block; each operation is queued at
// most once because only the arrival that reaches zero enqueues it.
func (s *Scheduler) runParallel(ctx context.Context, r *run) error {
	p := &parallelRun{
		run:   r,
		ready: make(chan *node, len(r.nodes)),
	}

	var roots []*node
	for _, id := range r.graph.RootOperationIDs {
		n, ready, err := r.arrive(id)
		if err != nil {
			return err
		}
		if ready {
			roots = append(roots, n)
		}
	}
	if len(roots) == 0 {
		return nil
	}

	p.outstanding.Store(int64(len(roots)))
	for _, n := range roots {
		p.ready <- n
	}

	var g errgroup.Group
	for i := range s.workers {
		g.Go(func() error {
			s.worker(ctx, p, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if p.failure != nil {
		return p.failure
	}
	if err := ctx.Err(); err != nil {
		return &ExecutionError{Code: ErrCodeCancelled, Message: "run cancelled", Err: err}
	}
	return nil
}

// worker executes operations until the ready channel closes. After a
// failure or cancellation, queued operations are drained without running.
func (s *Scheduler) worker(ctx context.Context, p *parallelRun, workerID int) {
	logger := s.logger.With("worker", workerID)
	logger.Debug("worker started")

	for n := range p.ready {
		if p.stopped.Load() || ctx.Err() != nil {
			p.release()
			continue
		}

		if err := s.execute(ctx, p.run, n); err != nil {
			p.fail(err)
		} else if !p.stopped.Load() {
			if err := p.dispatchChildren(n); err != nil {
				p.fail(err)
			}
		}
		p.release()
	}

	logger.Debug("worker finished")
}

func (p *parallelRun) dispatchChildren(n *node) error {
	for _, child := range n.op.Children {
		c, ready, err := p.arrive(child)
		if err != nil {
			return err
		}
		if ready {
			p.outstanding.Add(1)
			p.ready <- c
		}
	}
	return nil
}
