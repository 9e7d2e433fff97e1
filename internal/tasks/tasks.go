// Package tasks holds what the concrete tasks share: the result of a remote
// command and session handling.
package tasks

import (
	"github.com/rs/zerolog/log"

	"github.com/eniac111/fleetctl/internal/ssh"
	"github.com/eniac111/fleetctl/internal/types"
)

// CommandResult is the report info of tasks that run a remote command.
type CommandResult struct {
	ExitCode int    `json:"exit_code" yaml:"exit_code"`
	Stdout   string `json:"stdout"    yaml:"stdout"`
	Stderr   string `json:"stderr"    yaml:"stderr"`
}

func NewCommandResult(res ssh.ExecResult) CommandResult {
	return CommandResult{
		ExitCode: res.ExitCode,
		Stdout:   string(res.Stdout),
		Stderr:   string(res.Stderr),
	}
}

// WithSession connects to host, calls fn and closes the session.
func WithSession[T any](connector ssh.Connector, host types.Host, fn func(ssh.Session) (T, error)) (T, error) {
	var zero T
	sess, err := connector.Connect(host)
	if err != nil {
		return zero, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Debug().Err(err).Str("host", host.ID.String()).Msg("close session")
		}
	}()
	return fn(sess)
}
