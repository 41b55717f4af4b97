package export

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// JobFunc is the work executed for one job. It receives the run's shared
// cancellation token and must return a no-op result without side effects when
// the token is poisoned.
type JobFunc[J, R any] func(ctx context.Context, job J, token *Token) (R, error)

// ExecutorConfig configures an Executor. Func is required; every other field
// has a usable zero-value default.
type ExecutorConfig[J, R any] struct {
	Func       JobFunc[J, R]
	MaxWorkers int // default: 1

	// Outcome callbacks. Exactly one of OnSuccess/OnError fires per job,
	// followed by OnProgress, always from a single goroutine.
	OnSuccess  func(result R, job J)
	OnError    func(err error, job J)
	OnProgress func()

	Logger hclog.Logger
}

// Executor fans a list of jobs out over a bounded worker pool and routes each
// outcome to callbacks in completion order.
type Executor[J, R any] struct {
	fn         JobFunc[J, R]
	maxWorkers int
	onSuccess  func(R, J)
	onError    func(error, J)
	onProgress func()
	logger     hclog.Logger
}

// NewExecutor validates the configuration and fills defaults.
func NewExecutor[J, R any](cfg ExecutorConfig[J, R]) (*Executor[J, R], error) {
	if cfg.Func == nil {
		return nil, fmt.Errorf("job function is required")
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.OnSuccess == nil {
		cfg.OnSuccess = func(R, J) {}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error, J) {}
	}
	if cfg.OnProgress == nil {
		cfg.OnProgress = func() {}
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	return &Executor[J, R]{
		fn:         cfg.Func,
		maxWorkers: cfg.MaxWorkers,
		onSuccess:  cfg.OnSuccess,
		onError:    cfg.OnError,
		onProgress: cfg.OnProgress,
		logger:     cfg.Logger.Named("executor"),
	}, nil
}

type outcome[J, R any] struct {
	job    J
	result R
	err    error
}

// Run executes every job and invokes exactly one outcome callback plus one
// progress tick per job, in completion order. Job errors are isolated: they
// reach OnError and never abort sibling jobs.
//
// A fresh Token is created per run and passed to every job. When ctx is
// cancelled while jobs are outstanding, Run poisons the token, logs the
// interruption and keeps draining: running jobs finish cooperatively, queued
// jobs observe the token and no-op, and every job still gets its callback.
// Run then returns the ctx error so the interrupt propagates to the caller.
//
// Callbacks run on the caller's goroutine, never concurrently; a panicking
// callback is a programmer error and is not recovered.
func (e *Executor[J, R]) Run(ctx context.Context, jobs []J) error {
	if len(jobs) == 0 {
		return nil
	}

	token := NewToken()
	log := e.logger.With("run_id", uuid.NewString())
	log.Debug("starting run", "jobs", len(jobs), "max_workers", e.maxWorkers)

	workers := e.maxWorkers
	if len(jobs) < workers {
		workers = len(jobs)
	}

	// Both channels hold every job, so workers never block on send and the
	// drain loop below can always account for all outcomes.
	in := make(chan J, len(jobs))
	out := make(chan outcome[J, R], len(jobs))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range in {
				result, err := e.fn(ctx, job, token)
				out <- outcome[J, R]{job: job, result: result, err: err}
			}
		}()
	}

	for _, job := range jobs {
		in <- job
	}
	close(in)

	interrupted := false
	for done := 0; done < len(jobs); done++ {
		var oc outcome[J, R]
		if interrupted {
			oc = <-out
		} else {
			select {
			case <-ctx.Done():
				interrupted = true
				token.Poison()
				log.Info("run interrupted, waiting for in-flight jobs", "completed", done)
				oc = <-out
			case oc = <-out:
			}
		}

		if oc.err != nil {
			e.onError(oc.err, oc.job)
		} else {
			e.onSuccess(oc.result, oc.job)
		}
		e.onProgress()
	}

	wg.Wait()

	if interrupted {
		return ctx.Err()
	}
	log.Debug("run finished", "jobs", len(jobs))
	return nil
}
