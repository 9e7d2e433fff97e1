// Package exec runs a templated shell command on each host.
//
// Report info:
//
//	{"exit_code": 0, "stdout": "...", "stderr": "..."}
package exec

import (
	"github.com/eniac111/fleetctl/internal/render"
	"github.com/eniac111/fleetctl/internal/ssh"
	"github.com/eniac111/fleetctl/internal/tasks"
	"github.com/eniac111/fleetctl/internal/types"
)

// Task executes a command template such as
// `echo "{{ .host.id }} says {{ .host.vars.msg }}"`.
type Task struct {
	connector ssh.Connector
	command   string
}

func New(connector ssh.Connector, commandTemplate string) *Task {
	return &Task{connector: connector, command: commandTemplate}
}

// Prepare renders the command for host.
func (t *Task) Prepare(host types.Host) (string, error) {
	return render.String("command", t.command, host)
}

// Apply runs the rendered command. Its exit status is part of the info.
func (t *Task) Apply(host types.Host, command string) (any, error) {
	return tasks.WithSession(t.connector, host, func(sess ssh.Session) (any, error) {
		res, err := sess.Exec(command, nil)
		if err != nil {
			return nil, err
		}
		return tasks.NewCommandResult(res), nil
	})
}
