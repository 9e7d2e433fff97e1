// Package download fetches a remote file from each host into a per-host
// local directory: <base>/<host id>/<local path>.
//
// Report info:
//
//	{"file_path": "/work/web-1/file.ext", "file_size": 12345}
package download

import (
	"io"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/eniac111/fleetctl/internal/ssh"
	"github.com/eniac111/fleetctl/internal/tasks"
	"github.com/eniac111/fleetctl/internal/types"
)

type Task struct {
	connector  ssh.Connector
	fs         afero.Fs
	remotePath string
	localPath  string
	baseDir    string
}

type Info struct {
	FilePath string `json:"file_path" yaml:"file_path"`
	FileSize int64  `json:"file_size" yaml:"file_size"`
}

// New downloads remotePath to localPath under the working directory.
// localPath must be relative and may not leave the host's directory.
func New(connector ssh.Connector, remotePath, localPath string) *Task {
	return &Task{
		connector:  connector,
		fs:         afero.NewOsFs(),
		remotePath: remotePath,
		localPath:  localPath,
	}
}

// WithFs writes local files to fsys instead of the OS filesystem.
func (t *Task) WithFs(fsys afero.Fs) *Task {
	t.fs = fsys
	return t
}

// WithBaseDir replaces the working directory as the download root.
func (t *Task) WithBaseDir(dir string) *Task {
	t.baseDir = dir
	return t
}

// Prepare computes the host's destination and creates its directory.
func (t *Task) Prepare(host types.Host) (string, error) {
	if filepath.IsAbs(t.localPath) {
		return "", types.Errorf(types.ErrIsAbsolute, "local path should be a relative path, not absolute: %s", t.localPath)
	}
	// Each host owns its directory; ".." must not reach a sibling's.
	if !filepath.IsLocal(t.localPath) {
		return "", types.Errorf(types.ErrNotLocal, "local path must stay inside the host directory: %s", t.localPath)
	}

	base := t.baseDir
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", pkgerrors.Wrap(err, "get working directory")
		}
		base = cwd
	}

	full := filepath.Join(base, host.ID.String(), t.localPath)
	if err := t.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", pkgerrors.Wrapf(err, "create %s", filepath.Dir(full))
	}
	return full, nil
}

// Apply copies the remote file to localPath.
func (t *Task) Apply(host types.Host, localPath string) (any, error) {
	return tasks.WithSession(t.connector, host, func(sess ssh.Session) (any, error) {
		remote, err := sess.Get(t.remotePath)
		if err != nil {
			return nil, err
		}
		defer remote.Close()

		local, err := t.fs.Create(localPath)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "create %s", localPath)
		}
		defer local.Close()

		n, err := io.Copy(local, remote)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "download %s", t.remotePath)
		}
		return Info{FilePath: localPath, FileSize: n}, nil
	})
}
