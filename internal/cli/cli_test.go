package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/eniac111/fleetctl/internal/inventory"
	"github.com/eniac111/fleetctl/internal/ssh/sshtest"
	"github.com/eniac111/fleetctl/internal/types"
)

const inventoryTOML = `
[[hosts]]
id = "web-1"
address = "10.0.0.1:22"
tags = ["web"]

[[hosts]]
id = "web-2"
address = "10.0.0.2:22"
tags = ["web", "canary"]

[[hosts]]
id = "db-1"
address = "10.0.0.3:22"
tags = ["db"]
`

type entry struct {
	Host    string         `json:"host" yaml:"host"`
	Success bool           `json:"success" yaml:"success"`
	Info    map[string]any `json:"info" yaml:"info"`
	Error   string         `json:"error" yaml:"error"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewCommand(nil, &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func decodeReport(t *testing.T, out string) []entry {
	t.Helper()
	var report []entry
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	return report
}

func hostIDs(report []entry) []string {
	ids := make([]string, 0, len(report))
	for _, e := range report {
		ids = append(ids, e.Host)
	}
	return ids
}

func TestSelectHosts(t *testing.T) {
	inv, err := inventory.FromTOML([]byte(inventoryTOML))
	require.NoError(t, err)
	logger := zerolog.Nop()

	ids := func(hosts []types.Host) []string {
		out := []string{}
		for _, h := range hosts {
			out = append(out, h.ID.String())
		}
		return out
	}

	hosts, err := selectHosts(inv, "", "", logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"web-1", "web-2", "db-1"}, ids(hosts))

	hosts, err = selectHosts(inv, "db-1", "web", logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"db-1"}, ids(hosts), "host id wins over tags")

	hosts, err = selectHosts(inv, "nope", "", logger)
	require.NoError(t, err)
	assert.Empty(t, hosts)

	_, err = selectHosts(inv, "-bad", "", logger)
	assert.ErrorIs(t, err, types.ErrInvalidHostID)

	hosts, err = selectHosts(inv, "", "web & !canary", logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"web-1"}, ids(hosts))

	_, err = selectHosts(inv, "", "web &", logger)
	assert.ErrorIs(t, err, types.ErrInvalidToken)
}

func TestInfo(t *testing.T) {
	inv := writeFile(t, "hosts.toml", inventoryTOML)

	out, _, err := run(t, "-i", inv, "info")
	require.NoError(t, err)
	report := decodeReport(t, out)
	assert.Equal(t, []string{"web-1", "web-2", "db-1"}, hostIDs(report))
	assert.True(t, report[1].Success)
	assert.Equal(t, "10.0.0.2:22", report[1].Info["address"])
	assert.Equal(t, "root", report[1].Info["user"])

	out, _, err = run(t, "-i", inv, "-t", "web & !canary", "info")
	require.NoError(t, err)
	assert.Equal(t, []string{"web-1"}, hostIDs(decodeReport(t, out)))

	out, errOut, err := run(t, "-i", inv, "-H", "missing", "info")
	require.NoError(t, err)
	assert.Empty(t, decodeReport(t, out))
	assert.Contains(t, errOut, "host not found")

	out, _, err = run(t, "info")
	require.NoError(t, err)
	assert.Empty(t, decodeReport(t, out), "no inventory selects nothing")

	_, _, err = run(t, "-i", inv, "-t", "(web", "info")
	assert.ErrorIs(t, err, types.ErrInvalidToken)

	_, _, err = run(t, "-i", filepath.Join(t.TempDir(), "missing.toml"), "info")
	assert.ErrorIs(t, err, types.ErrFileNotFound)
}

func TestInfo_YAML(t *testing.T) {
	inv := writeFile(t, "hosts.toml", inventoryTOML)

	out, _, err := run(t, "-i", inv, "-H", "web-2", "-o", "yaml", "info")
	require.NoError(t, err)

	var report []entry
	require.NoError(t, yaml.Unmarshal([]byte(out), &report), out)
	require.Len(t, report, 1)
	assert.Equal(t, "web-2", report[0].Host)
	assert.Equal(t, []any{"web", "canary"}, report[0].Info["tags"])

	_, _, err = run(t, "-i", inv, "-o", "xml", "info")
	assert.ErrorIs(t, err, types.ErrOther)
}

func TestDo(t *testing.T) {
	srv := sshtest.Start(t)
	inv := writeFile(t, "hosts.json", fmt.Sprintf(`{"hosts": [
  {"id": "gone", "address": "host.invalid:22", "user": "tester", "vars": {"msg": "unused"}},
  {"id": "local", "address": %q, "user": "tester", "vars": {"msg": "hi"}}
]}`, srv.Addr))

	base := []string{
		"-i", inv,
		"--known-hosts", srv.KnownHostsFile,
		"--identity", srv.IdentityFile,
		"--ssh-config", filepath.Join(t.TempDir(), "missing"),
		"--connect-timeout", "2s",
	}

	for _, mode := range [][]string{nil, {"-p", "--workers", "2"}} {
		args := append(append(append([]string{}, base...), mode...), "do", "--", "echo", "{{ .host.id }} {{ .host.vars.msg }}")
		out, _, err := run(t, args...)

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 1, exitErr.Code)
		assert.Contains(t, exitErr.Error(), "gone: ")

		report := decodeReport(t, out)
		require.Equal(t, []string{"gone", "local"}, hostIDs(report))
		assert.False(t, report[0].Success)
		assert.Contains(t, report[0].Error, "failed to dial host.invalid:22")
		assert.True(t, report[1].Success)
		assert.Equal(t, "local hi\n", report[1].Info["stdout"])
		assert.EqualValues(t, 0, report[1].Info["exit_code"])
	}

	out, _, err := run(t, append(base, "-H", "local", "do", "--", "exit 5")...)
	require.NoError(t, err, "a non-zero exit status is still a successful run")
	report := decodeReport(t, out)
	require.Len(t, report, 1)
	assert.EqualValues(t, 5, report[0].Info["exit_code"])
}

func TestUpload_InvalidMode(t *testing.T) {
	_, _, err := run(t, "upload", "a", "b", "rwx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file mode")

	_, _, err = run(t, "upload", "a")
	require.Error(t, err)
}

func TestModule_RequiresModule(t *testing.T) {
	_, _, err := run(t, "module")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module")
}

func TestExternal(t *testing.T) {
	dir := t.TempDir()
	script := "#!/bin/sh\necho \"$FLEETCTL_INVENTORY|$FLEETCTL_HOST_ID|$FLEETCTL_HOST_TAGS|$*\"\nexit 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fleetctl-hello"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	out, _, err := run(t, "-i", "hosts.toml", "-t", "web", "hello", "--flag", "x")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Nil(t, exitErr.Err)
	assert.Equal(t, "hosts.toml||web|--flag x\n", out)

	_, _, err = run(t, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "nope"`)
}

func TestJoinCommand(t *testing.T) {
	assert.Equal(t, "ls -l | wc -l", joinCommand([]string{"ls -l | wc -l"}))
	assert.Equal(t, "echo 'a b' c", joinCommand([]string{"echo", "a b", "c"}))
}

func TestDo_NoKnownHostsFile(t *testing.T) {
	srv := sshtest.Start(t)
	t.Setenv("HOME", t.TempDir())
	inv := writeFile(t, "hosts.json", fmt.Sprintf(`{"hosts": [{"id": "local", "address": %q, "user": "tester"}]}`, srv.Addr))

	out, _, err := run(t, "-i", inv, "--identity", srv.IdentityFile, "do", "--", "true")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)

	report := decodeReport(t, out)
	require.Len(t, report, 1)
	assert.False(t, report[0].Success)
	assert.Contains(t, report[0].Error, "key is unknown")
}
