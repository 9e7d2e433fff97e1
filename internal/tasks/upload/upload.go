// Package upload copies a local file, or a template rendered per host, to
// each host.
//
// Report info:
//
//	{"file_size": 12345}
package upload

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/eniac111/fleetctl/internal/render"
	"github.com/eniac111/fleetctl/internal/ssh"
	"github.com/eniac111/fleetctl/internal/tasks"
	"github.com/eniac111/fleetctl/internal/types"
)

// DefaultMode is used when no file mode is given.
const DefaultMode os.FileMode = 0o644

const blockSize = 4 * 1024 * 1024

// Task describes an upload.
type Task struct {
	connector  ssh.Connector
	fs         afero.Fs
	localPath  string
	remotePath string
	mode       os.FileMode
	template   bool
}

// Payload is what Prepare computed for one host.
type Payload struct {
	// Content holds the rendered template; nil when uploading the file as is.
	Content []byte
	Size    int64
}

type Info struct {
	FileSize int64 `json:"file_size" yaml:"file_size"`
}

// NewFile uploads localPath unchanged.
func NewFile(connector ssh.Connector, localPath, remotePath string, mode os.FileMode) *Task {
	return &Task{
		connector:  connector,
		fs:         afero.NewOsFs(),
		localPath:  localPath,
		remotePath: remotePath,
		mode:       mode,
	}
}

// NewTemplate renders localPath for each host before uploading it.
func NewTemplate(connector ssh.Connector, localPath, remotePath string, mode os.FileMode) *Task {
	t := NewFile(connector, localPath, remotePath, mode)
	t.template = true
	return t
}

// WithFs reads local files from fsys instead of the OS filesystem.
func (t *Task) WithFs(fsys afero.Fs) *Task {
	t.fs = fsys
	return t
}

// Prepare checks the local file and, for templates, renders it.
func (t *Task) Prepare(host types.Host) (Payload, error) {
	info, err := t.fs.Stat(t.localPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Payload{}, types.Errorf(types.ErrFileNotFound, "no such file: %s", t.localPath)
	}
	if err != nil {
		return Payload{}, pkgerrors.Wrapf(err, "stat %s", t.localPath)
	}
	if info.IsDir() {
		return Payload{}, types.Errorf(types.ErrIsADirectory, "path is a directory, not a file: %s", t.localPath)
	}

	if !t.template {
		return Payload{Size: info.Size()}, nil
	}

	text, err := afero.ReadFile(t.fs, t.localPath)
	if err != nil {
		return Payload{}, pkgerrors.Wrapf(err, "read template %s", t.localPath)
	}
	content, err := render.String(t.localPath, string(text), host)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Content: []byte(content), Size: int64(len(content))}, nil
}

// Apply streams the payload to the remote path.
func (t *Task) Apply(host types.Host, p Payload) (any, error) {
	return tasks.WithSession(t.connector, host, func(sess ssh.Session) (any, error) {
		var content io.Reader
		if p.Content != nil {
			content = bytes.NewReader(p.Content)
		} else {
			f, err := t.fs.Open(t.localPath)
			if err != nil {
				return nil, pkgerrors.Wrapf(err, "open %s", t.localPath)
			}
			defer f.Close()
			content = bufio.NewReaderSize(f, blockSize)
		}

		if err := sess.Put(t.remotePath, t.mode, p.Size, content); err != nil {
			return nil, err
		}
		return Info{FileSize: p.Size}, nil
	})
}
