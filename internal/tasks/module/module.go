// Package module uploads an executable to each host and runs it with a JSON
// document on stdin.
//
// The document is the optional data file, deep-merged with the host variable
// module_<executable name>:
//
//	[[hosts]]
//	id = "web-1"
//	vars = { module_nginx = { worker_processes = 4 } }
//
// Report info:
//
//	{"exit_code": 0, "stdout": "...", "stderr": "..."}
package module

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/eniac111/fleetctl/internal/ssh"
	"github.com/eniac111/fleetctl/internal/tasks"
	"github.com/eniac111/fleetctl/internal/types"
)

// RemoteDir is where modules are installed, relative to the remote $HOME.
const RemoteDir = ".local/fleetctl/modules"

const blockSize = 4 * 1024 * 1024

type Task struct {
	connector  ssh.Connector
	fs         afero.Fs
	modulePath string
	dataPath   string
	name       string
}

// New runs the executable at modulePath. dataPath may be empty.
func New(connector ssh.Connector, modulePath, dataPath string) *Task {
	return &Task{
		connector:  connector,
		fs:         afero.NewOsFs(),
		modulePath: modulePath,
		dataPath:   dataPath,
		name:       filepath.Base(modulePath),
	}
}

// WithFs reads the module and data file from fsys instead of the OS
// filesystem.
func (t *Task) WithFs(fsys afero.Fs) *Task {
	t.fs = fsys
	return t
}

// Name is the module's executable name.
func (t *Task) Name() string {
	return t.name
}

// VarName is the host variable that overrides the module's data.
func (t *Task) VarName() string {
	return "module_" + t.name
}

// Prepare builds the JSON document sent to the module on host.
func (t *Task) Prepare(host types.Host) ([]byte, error) {
	info, err := t.fs.Stat(t.modulePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, types.Errorf(types.ErrFileNotFound, "no such module: %s", t.modulePath)
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "stat %s", t.modulePath)
	}
	if info.IsDir() {
		return nil, types.Errorf(types.ErrIsADirectory, "module is a directory, not a file: %s", t.modulePath)
	}

	override, hasOverride := host.Vars[t.VarName()]

	var data any = map[string]any{}
	if t.dataPath != "" {
		raw, err := afero.ReadFile(t.fs, t.dataPath)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.Errorf(types.ErrFileNotFound, "no such data file: %s", t.dataPath)
		}
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "read data file %s", t.dataPath)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, pkgerrors.Wrapf(err, "parse data file %s", t.dataPath)
		}
	}
	if hasOverride {
		data = merge(data, override)
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "encode data for %s", host.ID)
	}
	return out, nil
}

// Apply installs the module under $HOME and runs it.
func (t *Task) Apply(host types.Host, data []byte) (any, error) {
	return tasks.WithSession(t.connector, host, func(sess ssh.Session) (any, error) {
		home, err := remoteHome(sess)
		if err != nil {
			return nil, err
		}

		dir := path.Join(home, RemoteDir)
		res, err := sess.Exec("mkdir -p "+shellescape.Quote(dir), nil)
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, types.Errorf(types.ErrCommandExecutionFailed,
				"create %s: exit status %d: %s", dir, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
		}

		remote := path.Join(dir, t.name)
		if err := t.upload(sess, remote); err != nil {
			return nil, err
		}

		res, err = sess.Exec(shellescape.Quote(remote), bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return tasks.NewCommandResult(res), nil
	})
}

func (t *Task) upload(sess ssh.Session, remote string) error {
	f, err := t.fs.Open(t.modulePath)
	if err != nil {
		return pkgerrors.Wrapf(err, "open module %s", t.modulePath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return pkgerrors.Wrapf(err, "stat module %s", t.modulePath)
	}
	return sess.Put(remote, 0o700, info.Size(), bufio.NewReaderSize(f, blockSize))
}

func remoteHome(sess ssh.Session) (string, error) {
	res, err := sess.Exec("echo $HOME", nil)
	if err != nil {
		return "", err
	}
	home := strings.TrimSpace(string(res.Stdout))
	if res.ExitCode != 0 || home == "" {
		return "", types.Errorf(types.ErrCommandExecutionFailed, "resolve remote $HOME: exit status %d", res.ExitCode)
	}
	return home, nil
}
