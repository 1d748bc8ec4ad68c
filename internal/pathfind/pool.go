package pathfind

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/navcore/internal/world"
)

// Job is one search handed to the pool. Grid must be a snapshot the caller
// no longer mutates.
type Job struct {
	Grid  *world.Grid
	Start world.Vec2
	Goal  world.Vec2
	Size  float64
}

// Handle receives the result of a submitted Job.
type Handle struct {
	done chan Result
}

func newHandle() *Handle {
	return &Handle{done: make(chan Result, 1)}
}

// TryTake returns the result if the search has finished. It never blocks.
// A result is delivered exactly once.
func (h *Handle) TryTake() (Result, bool) {
	select {
	case r := <-h.done:
		return r, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the result is available or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Result, bool) {
	select {
	case r := <-h.done:
		return r, true
	case <-ctx.Done():
		return Result{}, false
	}
}

type queuedJob struct {
	job    Job
	handle *Handle
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithWorkers sets the number of search goroutines. Defaults to GOMAXPROCS.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithSearchOptions applies opts to every search run by the pool.
func WithSearchOptions(opts ...Option) PoolOption {
	return func(p *Pool) { p.searchOpts = append(p.searchOpts, opts...) }
}

// Pool runs searches on a fixed set of goroutines. Submit never blocks.
type Pool struct {
	workers    int
	searchOpts []Option

	mu      sync.Mutex
	pending []queuedJob
	closed  bool
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewPool starts the worker goroutines.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		workers: runtime.GOMAXPROCS(0),
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	var gctx context.Context
	p.group, gctx = errgroup.WithContext(p.ctx)
	for i := 0; i < p.workers; i++ {
		p.group.Go(func() error { return p.work(gctx) })
	}
	return p
}

// Workers returns the number of search goroutines.
func (p *Pool) Workers() int { return p.workers }

// Submit queues a search and returns its handle. After Close the handle
// resolves immediately with a truncated result.
func (p *Pool) Submit(j Job) *Handle {
	h := newHandle()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		h.done <- Result{Truncated: true}
		return h
	}
	p.pending = append(p.pending, queuedJob{job: j, handle: h})
	p.mu.Unlock()
	p.signal()
	return h
}

// Pending returns the number of queued jobs no worker has picked up yet.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Close cancels in-flight searches, resolves queued jobs as truncated and
// waits for the workers to exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	err := p.group.Wait()

	p.mu.Lock()
	for _, q := range p.pending {
		q.handle.done <- Result{Truncated: true}
	}
	p.pending = nil
	p.mu.Unlock()
	return err
}

func (p *Pool) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pool) next() (queuedJob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return queuedJob{}, false
	}
	q := p.pending[0]
	p.pending[0] = queuedJob{}
	p.pending = p.pending[1:]
	if len(p.pending) > 0 {
		p.signal()
	}
	return q, true
}

func (p *Pool) work(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		q, ok := p.next()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-p.wake:
			}
			continue
		}
		j := q.job
		q.handle.done <- Search(ctx, j.Grid, j.Start, j.Goal, j.Size, p.searchOpts...)
	}
}
