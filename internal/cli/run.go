package cli

import (
	"encoding/json"
	"io"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/eniac111/fleetctl/internal/config"
	"github.com/eniac111/fleetctl/internal/runner"
	"github.com/eniac111/fleetctl/internal/types"
)

// execute runs task over the selected hosts and prints the report. Failed
// hosts turn into an exit status of 1 after the report is written.
func execute[D any](a *app, task runner.Task[D]) error {
	hosts, err := a.hosts()
	if err != nil {
		return err
	}

	strategy := runner.Sequential
	if a.cfg.Parallel {
		strategy = runner.Parallel
	}
	opts := []runner.Option{runner.WithLogger(a.logger)}
	if a.cfg.Workers > 0 {
		opts = append(opts, runner.WithWorkers(a.cfg.Workers))
	}

	report, err := runner.Run(hosts, task, strategy, opts...)
	if err != nil {
		return err
	}
	if err := writeReport(a.out, a.cfg.Output, report); err != nil {
		return err
	}
	if err := report.Err(); err != nil {
		a.logger.Warn().Int("failed", report.Failed()).Int("hosts", len(report)).Msg("run finished with failures")
		return &ExitError{Code: 1, Err: err}
	}
	return nil
}

func writeReport(w io.Writer, format string, report runner.Report) error {
	switch format {
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return pkgerrors.Wrap(err, "encode report")
		}
		return enc.Close()
	case config.OutputJSON:
		if err := json.NewEncoder(w).Encode(report); err != nil {
			return pkgerrors.Wrap(err, "encode report")
		}
		return nil
	default:
		return types.Errorf(types.ErrOther, "unsupported output format %q", format)
	}
}
