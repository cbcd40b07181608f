// Package asyncbridge hands work from arbitrary goroutines to a single
// owner goroutine.
//
// Adapters that share one connection or session across requests (the
// Qdrant HTTP session, the MCP request path) route calls through a Bridge
// so that at most one execution touches the shared state at a time:
//
//   - while Run is active, calls are queued to the owner goroutine and the
//     caller blocks on a Future;
//   - when no loop is running, calls execute on the caller's goroutine,
//     serialised by a mutex;
//   - a call made from inside a running job executes inline.
package asyncbridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// DefaultQueueSize is the number of jobs that may wait for the loop.
const DefaultQueueSize = 64

type ownerKey struct{}

type job struct {
	ctx context.Context
	run func(ctx context.Context)
	// fail completes the job's future without running it.
	fail func(err error)
}

type loop struct {
	jobs     chan job
	stop     chan struct{}
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// Bridge serialises executions onto one owner goroutine.
type Bridge struct {
	queueSize int

	mu   sync.RWMutex
	loop *loop

	// exec is held by every execution that is not inline, so a loop job
	// and a direct call never overlap.
	exec sync.Mutex
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithQueueSize bounds the number of queued jobs.
func WithQueueSize(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// New creates a bridge with no loop running.
func New(opts ...Option) *Bridge {
	b := &Bridge{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run registers the calling goroutine as the owner and executes queued
// jobs until Stop is called or ctx is done. It blocks. Calling Run while
// a loop is already active returns nil immediately.
//
// After Stop the remaining queued jobs are executed before Run returns.
// When ctx ends first they fail with domain.ErrBridgeStopped.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.loop != nil {
		b.mu.Unlock()
		return nil
	}
	l := &loop{
		jobs:   make(chan job, b.queueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	b.loop = l
	b.mu.Unlock()
	defer close(l.exited)

	logger.Debug("asyncbridge: loop started")
	for {
		// A cancelled owner wins over queued work.
		if ctx.Err() != nil {
			b.shutdown(l, func(j job) { j.fail(domain.ErrBridgeStopped) })
			logger.Debug("asyncbridge: loop cancelled")
			return ctx.Err()
		}
		select {
		case j := <-l.jobs:
			b.execute(j)
		case <-l.stop:
			b.shutdown(l, func(j job) { b.execute(j) })
			logger.Debug("asyncbridge: loop stopped")
			return nil
		case <-ctx.Done():
			b.shutdown(l, func(j job) { j.fail(domain.ErrBridgeStopped) })
			logger.Debug("asyncbridge: loop cancelled")
			return ctx.Err()
		}
	}
}

// Stop ends the running loop after draining its queue and waits for Run
// to return. Must not be called from inside a job.
func (b *Bridge) Stop() {
	b.mu.RLock()
	l := b.loop
	b.mu.RUnlock()
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.exited
}

// Running reports whether a loop is accepting jobs.
func (b *Bridge) Running() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loop != nil
}

// shutdown unregisters the loop, then hands every job still queued to
// handle. Senders blocked on a full queue are released through done
// before the registration lock is taken.
func (b *Bridge) shutdown(l *loop, handle func(job)) {
	close(l.done)
	b.mu.Lock()
	b.loop = nil
	b.mu.Unlock()

	for {
		select {
		case j := <-l.jobs:
			handle(j)
		default:
			return
		}
	}
}

func (b *Bridge) execute(j job) {
	if err := j.ctx.Err(); err != nil {
		j.fail(err)
		return
	}
	b.exec.Lock()
	defer b.exec.Unlock()
	j.run(b.owned(j.ctx))
}

func (b *Bridge) owned(ctx context.Context) context.Context {
	return context.WithValue(ctx, ownerKey{}, b)
}

func (b *Bridge) isOwner(ctx context.Context) bool {
	owner, _ := ctx.Value(ownerKey{}).(*Bridge)
	return owner == b
}

// enqueue hands j to the running loop. It returns false when no loop is
// running or the loop shut down before accepting the job.
func (b *Bridge) enqueue(j job) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	l := b.loop
	if l == nil {
		return false, nil
	}
	select {
	case l.jobs <- j:
		return true, nil
	case <-l.done:
		return false, nil
	case <-j.ctx.Done():
		return false, j.ctx.Err()
	}
}

// Future is the pending result of a submitted call.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
	once sync.Once
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(val T, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

func (f *Future[T]) fail(err error) {
	var zero T
	f.complete(zero, err)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. Abandoning
// a future does not cancel the call.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit schedules fn and returns its future without blocking on the
// result. Without a running loop fn runs on a new goroutine under the
// execution lock.
func Submit[T any](ctx context.Context, b *Bridge, fn func(context.Context) (T, error)) *Future[T] {
	fut := newFuture[T]()
	if b.isOwner(ctx) {
		fut.complete(call(ctx, fn))
		return fut
	}

	j := job{
		ctx:  ctx,
		run:  func(ctx context.Context) { fut.complete(call(ctx, fn)) },
		fail: fut.fail,
	}
	queued, err := b.enqueue(j)
	switch {
	case err != nil:
		j.fail(err)
	case !queued:
		go func() {
			fut.complete(runDirect(ctx, b, fn))
		}()
	}
	return fut
}

// Do runs fn through the bridge and waits for its result. Without a
// running loop fn runs on the calling goroutine under the
// execution lock.
func Do[T any](ctx context.Context, b *Bridge, fn func(context.Context) (T, error)) (T, error) {
	if b.isOwner(ctx) {
		return call(ctx, fn)
	}

	fut := newFuture[T]()
	j := job{
		ctx:  ctx,
		run:  func(ctx context.Context) { fut.complete(call(ctx, fn)) },
		fail: fut.fail,
	}
	queued, err := b.enqueue(j)
	if err != nil {
		var zero T
		return zero, err
	}
	if !queued {
		return runDirect(ctx, b, fn)
	}
	return fut.Wait(ctx)
}

func runDirect[T any](ctx context.Context, b *Bridge, fn func(context.Context) (T, error)) (T, error) {
	b.exec.Lock()
	defer b.exec.Unlock()
	return call(b.owned(ctx), fn)
}

// call runs fn, turning a panic into an error so the loop survives.
func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("asyncbridge: call panicked: %v", r)
		}
	}()
	return fn(ctx)
}
