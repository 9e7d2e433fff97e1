package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/eniac111/fleetctl/internal/modules"
)

// Module manages a path's existence and attributes. Parameters:
//
//	path, state (file|touch|directory|absent|link|hard), src, dest,
//	owner, group, mode (octal), recurse,
//	modification_time, access_time (RFC 3339 or "now")
type Module struct {
	Fs afero.Fs
}

// New returns a Module working on the OS filesystem.
func New() Module {
	return Module{Fs: afero.NewOsFs()}
}

func (Module) Name() string { return "file" }

// Run reads parameters and performs the requested file operation.
func (m Module) Run(params modules.Params) modules.Result {
	res := modules.Result{Module: m.Name()}

	path := params.String("path")
	state := params.String("state")
	src := params.String("src")
	dest := params.String("dest")

	if state == "" {
		state = "file"
	}

	if path == "" && (state == "file" || state == "touch" || state == "directory" || state == "absent") {
		return modules.Fail(res, "Missing 'path' parameter")
	}
	if (state == "link" || state == "hard") && dest == "" {
		dest = path
	}
	if (state == "link" || state == "hard") && (dest == "" || src == "") {
		return modules.Fail(res, "For link/hard link state, both 'src' and 'dest' are required")
	}

	var (
		changed bool
		err     error
	)
	switch state {
	case "file":
		changed, err = m.ensureFile(path, false)
		res.Msg = fmt.Sprintf("File '%s' created", path)
	case "touch":
		changed, err = m.ensureFile(path, true)
		res.Msg = fmt.Sprintf("File '%s' touched", path)
	case "directory":
		changed, err = m.ensureDirectory(path)
		res.Msg = fmt.Sprintf("Directory '%s' created", path)
	case "absent":
		changed, err = m.removePath(path)
		res.Msg = fmt.Sprintf("Removed '%s'", path)
	case "link":
		changed, err = m.ensureSymlink(src, dest)
		res.Msg = fmt.Sprintf("Symlink created: %s -> %s", dest, src)
		path = ""
	case "hard":
		changed, err = m.ensureHardLink(src, dest)
		res.Msg = fmt.Sprintf("Hard link created: %s -> %s", dest, src)
		path = dest
	default:
		return modules.Fail(res, fmt.Sprintf("Unknown state '%s'", state))
	}
	if err != nil {
		return modules.Fail(res, err.Error())
	}
	res.Changed = changed

	if state != "absent" && path != "" {
		attrChanged, err := m.setFileAttributes(path, params)
		if err != nil {
			return modules.Fail(res, err.Error())
		}
		res.Changed = res.Changed || attrChanged
	}
	return res
}

func (m Module) ensureFile(path string, touch bool) (bool, error) {
	info, err := m.Fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		f, err := m.Fs.Create(path)
		if err != nil {
			return false, err
		}
		return true, f.Close()
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("'%s' exists but is a directory", path)
	}
	if touch {
		now := time.Now()
		return true, m.Fs.Chtimes(path, now, now)
	}
	return false, nil
}

func (m Module) ensureDirectory(path string) (bool, error) {
	info, err := m.Fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, m.Fs.MkdirAll(path, 0o755)
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("'%s' exists but is not a directory", path)
	}
	return false, nil
}

func (m Module) removePath(path string) (bool, error) {
	_, err := m.Fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, m.Fs.RemoveAll(path)
}

func (m Module) ensureSymlink(src, dest string) (bool, error) {
	linker, ok := m.Fs.(afero.Linker)
	if !ok {
		return false, errors.New("filesystem does not support symlinks")
	}
	if _, err := m.lstat(dest); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	return true, linker.SymlinkIfPossible(src, dest)
}

func (m Module) ensureHardLink(src, dest string) (bool, error) {
	if _, ok := m.Fs.(*afero.OsFs); !ok {
		return false, errors.New("filesystem does not support hard links")
	}
	if _, err := os.Lstat(dest); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	return true, os.Link(src, dest)
}

func (m Module) lstat(path string) (fs.FileInfo, error) {
	if l, ok := m.Fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return m.Fs.Stat(path)
}

// setFileAttributes applies mode, ownership and timestamps, walking the tree
// when recurse is set.
func (m Module) setFileAttributes(path string, params modules.Params) (bool, error) {
	var (
		mode         os.FileMode
		setMode      bool
		uid, gid     = -1, -1
		atime, mtime time.Time
	)

	if raw := params.String("mode"); raw != "" {
		v, err := strconv.ParseUint(raw, 8, 32)
		if err != nil {
			return false, pkgerrors.Wrapf(err, "invalid mode %q", raw)
		}
		mode, setMode = os.FileMode(v), true
	}
	if owner := params.String("owner"); owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return false, pkgerrors.Wrapf(err, "lookup owner %s", owner)
		}
		uid, _ = strconv.Atoi(u.Uid)
	}
	if group := params.String("group"); group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return false, pkgerrors.Wrapf(err, "lookup group %s", group)
		}
		gid, _ = strconv.Atoi(g.Gid)
	}
	var err error
	if mtime, err = parseTime(params.String("modification_time")); err != nil {
		return false, err
	}
	if atime, err = parseTime(params.String("access_time")); err != nil {
		return false, err
	}

	apply := func(p string, info fs.FileInfo) (bool, error) {
		changed := false
		if setMode && info.Mode().Perm() != mode.Perm() {
			if err := m.Fs.Chmod(p, mode); err != nil {
				return false, err
			}
			changed = true
		}
		if (uid >= 0 || gid >= 0) && !ownedBy(info, uid, gid) {
			if err := m.Fs.Chown(p, uid, gid); err != nil {
				return false, err
			}
			changed = true
		}
		if !mtime.IsZero() || !atime.IsZero() {
			a, mt := atime, mtime
			if a.IsZero() {
				a = info.ModTime()
			}
			if mt.IsZero() {
				mt = info.ModTime()
			}
			if err := m.Fs.Chtimes(p, a, mt); err != nil {
				return false, err
			}
			changed = true
		}
		return changed, nil
	}

	if !params.Bool("recurse") {
		info, err := m.Fs.Stat(path)
		if err != nil {
			return false, err
		}
		return apply(path, info)
	}

	changed := false
	err = afero.Walk(m.Fs, path, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		c, err := apply(p, info)
		changed = changed || c
		return err
	})
	return changed, err
}

func parseTime(raw string) (time.Time, error) {
	switch raw {
	case "":
		return time.Time{}, nil
	case "now":
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, pkgerrors.Wrapf(err, "invalid time %q", raw)
	}
	return t, nil
}
