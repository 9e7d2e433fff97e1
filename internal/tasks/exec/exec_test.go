package exec_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/fleetctl/internal/runner"
	"github.com/eniac111/fleetctl/internal/ssh"
	"github.com/eniac111/fleetctl/internal/ssh/sshtest"
	"github.com/eniac111/fleetctl/internal/tasks"
	"github.com/eniac111/fleetctl/internal/tasks/exec"
	"github.com/eniac111/fleetctl/internal/types"
)

func TestPrepare(t *testing.T) {
	host := *types.NewHost(types.MustHostID("web-1"), "10.0.0.1").SetVar("msg", "hello")

	cmd, err := exec.New(nil, `echo "{{ .host.id }} says {{ .host.vars.msg }}"`).Prepare(host)
	require.NoError(t, err)
	assert.Equal(t, `echo "web-1 says hello"`, cmd)

	_, err = exec.New(nil, `echo {{ .host.vars.nope }}`).Prepare(host)
	require.Error(t, err)
}

func TestApply(t *testing.T) {
	srv := sshtest.Start(t)
	host := srv.Host("local")

	info, err := exec.New(srv.Connector(t), "").Apply(host, "echo out; echo err >&2; exit 7")
	require.NoError(t, err)
	assert.Equal(t, tasks.CommandResult{ExitCode: 7, Stdout: "out\n", Stderr: "err\n"}, info)
}

func TestRun_MixedHosts(t *testing.T) {
	srv := sshtest.Start(t)

	good := srv.Host("good")
	good.SetVar("msg", "hello")

	cfg := srv.ClientConfig()
	cfg.ConnectTimeout = 2 * time.Second
	client, err := ssh.NewClient(cfg)
	require.NoError(t, err)

	bad := *types.NewHost(types.MustHostID("bad"), "host.invalid:22").SetVar("msg", "unused")
	hosts := []types.Host{bad, good}
	task := exec.New(client, `echo "{{ .host.id }} {{ .host.vars.msg }}"`)

	var reports [][]byte
	for _, strategy := range []runner.Strategy{runner.Sequential, runner.Parallel} {
		t.Run(strategy.String(), func(t *testing.T) {
			report, err := runner.Run(hosts, task, strategy)
			require.NoError(t, err)
			require.Len(t, report, 2)

			assert.Equal(t, "bad", report[0].Host.String())
			assert.False(t, report[0].Success)
			assert.Contains(t, report[0].Error, "failed to dial host.invalid:22")

			assert.Equal(t, "good", report[1].Host.String())
			assert.True(t, report[1].Success)
			assert.Equal(t, tasks.CommandResult{Stdout: "good hello\n"}, report[1].Info)

			assert.Equal(t, 1, report.Failed())

			raw, err := json.Marshal(report)
			require.NoError(t, err)
			reports = append(reports, raw)
		})
	}
	require.Len(t, reports, 2)
	assert.JSONEq(t, string(reports[0]), string(reports[1]))
}
