package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of work, typically a single batched API call.
type Job interface {
	Execute(ctx context.Context) (any, error)
}

// JobFunc adapts a function to the Job interface.
type JobFunc func(ctx context.Context) (any, error)

func (f JobFunc) Execute(ctx context.Context) (any, error) {
	return f(ctx)
}

// Outcome is the result of one unit of work. Index matches the job's position
// in the submitted slice, so callers get deterministic ordering regardless of
// completion order. A non-OK Class with a nil Value is the explicit "this
// batch degraded to empty output" signal.
type Outcome struct {
	Index    int
	Value    any
	Class    Class
	Err      error
	Attempts int
}

// Config bounds the pool's concurrency and retry behavior.
type Config struct {
	// MaxWorkers is the number of units of work executing at any instant.
	MaxWorkers int
	// MaxRetries is the total attempts for a transient failure.
	MaxRetries int
	// RetryDelay is the initial backoff, doubled on each further attempt.
	RetryDelay time.Duration
	// FailOpen keeps the run alive when a unit of work permanently fails:
	// the batch degrades to empty output instead of aborting the pipeline.
	// When false, the first exhausted unit of work aborts the whole run.
	FailOpen bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers: 5,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		FailOpen:   true,
	}
}

// Pool executes jobs with bounded concurrency behind a shared rate limiter.
// The limiter is the single synchronization point between otherwise
// independent workers; each worker owns its outcome slot exclusively.
type Pool struct {
	cfg      Config
	limiter  *Limiter
	classify Classifier
	sleep    func(time.Duration) // injectable for tests
	logger   *zap.Logger
}

// NewPool creates a pool. A nil limiter disables throttling; a nil logger is
// replaced with a no-op one.
func NewPool(cfg Config, limiter *Limiter, logger *zap.Logger) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		cfg:      cfg,
		limiter:  limiter,
		classify: ClassifyErr,
		sleep:    time.Sleep,
		logger:   logger,
	}
}

// SetClassifier overrides the failure classifier.
func (p *Pool) SetClassifier(c Classifier) {
	if c != nil {
		p.classify = c
	}
}

// Run executes all jobs and returns one Outcome per job, in submission order.
// With FailOpen set, Run only fails on context cancellation; permanently
// failed jobs surface through their Outcome. With FailOpen unset, the first
// permanently failed job cancels the remaining work and Run returns its error.
func (p *Pool) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	if len(jobs) == 0 {
		return []Outcome{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]Outcome, len(jobs))
	indices := make(chan int)

	var (
		wg       sync.WaitGroup
		abortMu  sync.Mutex
		abortErr error
	)

	abort := func(err error) {
		abortMu.Lock()
		if abortErr == nil {
			abortErr = err
		}
		abortMu.Unlock()
		cancel()
	}

	workers := p.cfg.MaxWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				out := p.runOne(ctx, idx, jobs[idx])
				outcomes[idx] = out
				if out.Class != ClassOK && !p.cfg.FailOpen {
					abort(fmt.Errorf("batch %d failed (%s): %w", idx, out.Class, out.Err))
					return
				}
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case indices <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indices)
	wg.Wait()

	abortMu.Lock()
	defer abortMu.Unlock()
	if abortErr != nil {
		return outcomes, abortErr
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// runOne executes a single job with rate limiting and classified retry.
func (p *Pool) runOne(ctx context.Context, idx int, job Job) Outcome {
	delay := p.cfg.RetryDelay
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return Outcome{Index: idx, Class: ClassFatal, Err: err, Attempts: attempt}
			}
		}

		value, err := job.Execute(ctx)
		class := p.classify(err)

		switch class {
		case ClassOK:
			return Outcome{Index: idx, Value: value, Class: ClassOK, Attempts: attempt}

		case ClassQuota:
			// Exhausted allowance never recovers inside a run. Degrade the
			// batch instead of burning the retry budget.
			p.logger.Error("quota exhausted, dropping batch",
				zap.Int("batch", idx), zap.Error(err))
			return Outcome{Index: idx, Class: ClassQuota, Err: err, Attempts: attempt}

		case ClassTransient:
			lastErr = err
			if attempt < p.cfg.MaxRetries {
				p.logger.Warn("transient failure, backing off",
					zap.Int("batch", idx),
					zap.Int("attempt", attempt),
					zap.Duration("backoff", delay),
					zap.Error(err))
				p.sleep(delay)
				delay *= 2
				continue
			}
			p.logger.Error("retries exhausted, dropping batch",
				zap.Int("batch", idx), zap.Int("attempts", attempt), zap.Error(err))
			return Outcome{Index: idx, Class: ClassTransient, Err: lastErr, Attempts: attempt}

		default:
			p.logger.Error("unrecoverable failure, dropping batch",
				zap.Int("batch", idx), zap.Error(err))
			return Outcome{Index: idx, Class: ClassFatal, Err: err, Attempts: attempt}
		}
	}

	return Outcome{Index: idx, Class: ClassTransient, Err: lastErr, Attempts: p.cfg.MaxRetries}
}
