// Package runner runs a Task over a list of hosts and aggregates the per-host
// outcomes into a Report.
//
// A run has two passes. The prepare pass is all-or-nothing: the first
// failing Prepare aborts the run before any Apply is made. The apply pass
// collects every outcome, so one failing host never hides the others.
package runner

import (
	"fmt"
	"runtime"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eniac111/fleetctl/internal/types"
)

// Strategy selects how hosts are scheduled.
type Strategy int

const (
	// Sequential handles one host at a time, in list order.
	Sequential Strategy = iota
	// Parallel fans out over a bounded worker pool.
	Parallel
)

func (s Strategy) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

type options struct {
	workers int
	logger  *zerolog.Logger
}

// Option tunes a run.
type Option func(*options)

// WithWorkers caps the parallel worker pool. It defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger sets the logger used for run diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// RunSequential is Run with the Sequential strategy.
func RunSequential[D any](hosts []types.Host, task Task[D], opts ...Option) (Report, error) {
	return Run(hosts, task, Sequential, opts...)
}

// RunParallel is Run with the Parallel strategy.
func RunParallel[D any](hosts []types.Host, task Task[D], opts ...Option) (Report, error) {
	return Run(hosts, task, Parallel, opts...)
}

// Run prepares task for every host, then applies it to every host. It
// returns an error only when a Prepare fails; apply failures are recorded
// in the report. The report is in the order of hosts for both strategies.
func Run[D any](hosts []types.Host, task Task[D], strategy Strategy, opts ...Option) (Report, error) {
	o := options{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.Logger
	if o.logger != nil {
		logger = *o.logger
	}
	workers := 1
	if strategy == Parallel {
		workers = o.workers
	}
	logger = logger.With().Str("strategy", strategy.String()).Logger()

	logger.Debug().Int("hosts", len(hosts)).Int("workers", workers).Msg("prepare phase")
	data := make([]D, len(hosts))
	err := forEach(len(hosts), workers, true, func(i int) error {
		d, err := task.Prepare(hosts[i])
		if err != nil {
			return pkgerrors.Wrapf(err, "prepare %s", hosts[i].ID)
		}
		data[i] = d
		return nil
	})
	if err != nil {
		logger.Debug().Err(err).Msg("prepare phase failed, nothing applied")
		return nil, err
	}

	logger.Debug().Int("hosts", len(hosts)).Msg("apply phase")
	report := make(Report, len(hosts))
	_ = forEach(len(hosts), workers, false, func(i int) error {
		info, err := safeApply(task, hosts[i], data[i])
		report[i] = newOutcome(hosts[i], info, err)
		event := logger.Debug()
		if err != nil {
			event = logger.Warn().Err(err)
		}
		event.Str("host", hosts[i].ID.String()).Bool("success", err == nil).Msg("applied")
		return nil
	})
	return report, nil
}

func safeApply[D any](task Task[D], host types.Host, data D) (info any, err error) {
	defer func() {
		if r := recover(); r != nil {
			info = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Apply(host, data)
}
