package concurrency

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// FailurePolicy decides what Map does when a work item fails.
type FailurePolicy int

const (
	// FailFast aborts the whole Map call on the first failed item.
	FailFast FailurePolicy = iota
	// CollectPartial keeps going and reports failures per item.
	CollectPartial
)

func (p FailurePolicy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case CollectPartial:
		return "collect-partial"
	}
	return fmt.Sprintf("FailurePolicy(%d)", int(p))
}

// ParseFailurePolicy accepts "fail-fast" or "collect-partial".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "fail-fast", "failfast":
		return FailFast, nil
	case "collect-partial", "partial":
		return CollectPartial, nil
	}
	return FailFast, fmt.Errorf("concurrency: unknown failure policy %q", s)
}

// ParallelOptions configures a Pool.
type ParallelOptions struct {
	// MaxWorkers is the number of goroutines serving the pool.
	MaxWorkers int
	Policy     FailurePolicy
}

// DefaultOptions sizes the pool to the number of CPUs and fails fast.
func DefaultOptions() ParallelOptions {
	return ParallelOptions{
		MaxWorkers: runtime.NumCPU(),
		Policy:     FailFast,
	}
}

// ErrPoolClosed is returned by Map once Close has been called.
var ErrPoolClosed = errors.New("concurrency: pool closed")

// Pool is a fixed set of workers shared by every Map call made against it.
// It is safe for concurrent use.
type Pool struct {
	opts  ParallelOptions
	tasks chan func()

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts opts.MaxWorkers workers. Non-positive sizes fall back to runtime.NumCPU().
func NewPool(opts ParallelOptions) *Pool {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = runtime.NumCPU()
	}

	p := &Pool{
		opts:  opts,
		tasks: make(chan func()),
	}
	for w := 0; w < opts.MaxWorkers; w++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

func (p *Pool) Size() int { return p.opts.MaxWorkers }

func (p *Pool) Policy() FailurePolicy { return p.opts.Policy }

// Close stops the workers after queued tasks finish. Calling it twice is a no-op.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

// ItemError ties a failure to the index of the input that caused it.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Map runs itemFunc for every item on the pool and returns the outputs in input order,
// whatever order the items complete in.
//
// Under FailFast the first failure cancels the context handed to items that have not
// started yet and Map returns that failure with no results. Under CollectPartial Map
// returns the successful outputs (still in input order) and one ItemError per failed
// item, sorted by index.
//
// Cancelling ctx aborts the call under either policy: Map returns ctx.Err() and no
// results, since the unfinished items did not fail on their own.
func Map[T any, R any](
	ctx context.Context,
	p *Pool,
	items []T,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) ([]R, []ItemError, error) {
	if len(items) == 0 {
		return []R{}, nil, nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	results := make([]R, len(items))
	errs := make([]error, len(items))

	var (
		once     sync.Once
		firstErr error
		wg       sync.WaitGroup
	)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, nil, ErrPoolClosed
	}
	for i := range items {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			res, err := itemFunc(ctx, i, items[i])
			if err != nil {
				errs[i] = err
				if p.opts.Policy == FailFast {
					once.Do(func() {
						firstErr = ItemError{Index: i, Err: err}
						cancel()
					})
				}
				return
			}
			results[i] = res
		}

		select {
		case p.tasks <- task:
		case <-ctx.Done():
			// nothing will pick this one up; account for it here
			errs[i] = ctx.Err()
			wg.Done()
		}
	}
	p.mu.RUnlock()

	wg.Wait()

	if err := parent.Err(); err != nil {
		return nil, nil, err
	}

	if p.opts.Policy == FailFast {
		if firstErr != nil {
			return nil, nil, firstErr
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		return results, nil, nil
	}

	out := make([]R, 0, len(items))
	var itemErrs []ItemError
	for i := range items {
		if errs[i] != nil {
			itemErrs = append(itemErrs, ItemError{Index: i, Err: errs[i]})
			continue
		}
		out = append(out, results[i])
	}
	return out, itemErrs, nil
}
