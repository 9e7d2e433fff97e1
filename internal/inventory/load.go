package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/eniac111/fleetctl/internal/types"
)

// FromTOML decodes a TOML inventory document.
//
//	[[hosts]]
//	id = "localhost"
//	address = "localhost:22"
//	user = "root"
//	tags = ["local"]
//	vars = { msg = "hi" }
func FromTOML(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := toml.Unmarshal(data, &inv); err != nil {
		return nil, pkgerrors.Wrap(err, "parse toml inventory")
	}
	inv.normalize()
	return &inv, nil
}

// FromJSON decodes a JSON inventory document.
func FromJSON(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, pkgerrors.Wrap(err, "parse json inventory")
	}
	inv.normalize()
	return &inv, nil
}

// FromYAML decodes a YAML inventory document.
func FromYAML(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, pkgerrors.Wrap(err, "parse yaml inventory")
	}
	inv.normalize()
	return &inv, nil
}

// Load reads the inventory at path. An executable file is run and its
// standard output parsed as JSON; other files are decoded by extension
// (.json, .yaml/.yml, TOML otherwise).
func Load(path string) (*Inventory, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, types.Errorf(types.ErrFileNotFound, "inventory %q does not exist", path)
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "stat inventory %s", path)
	}
	if info.IsDir() {
		return nil, types.Errorf(types.ErrIsADirectory, "inventory %q is a directory", path)
	}

	if isExecutable(info) {
		return fromExecutable(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "read inventory %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FromJSON(data)
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return FromTOML(data)
	}
}

func isExecutable(info fs.FileInfo) bool {
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

func fromExecutable(path string) (*Inventory, error) {
	// exec.Command searches $PATH for names without a separator.
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "resolve inventory %s", path)
	}
	cmd := exec.Command(abs)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, types.Errorf(types.ErrCommandExecutionFailed,
				"failed to execute inventory %s: %s: %s", path, exitErr.ProcessState, strings.TrimSpace(stderr.String()))
		}
		return nil, types.Wrapf(types.ErrCommandExecutionFailed, err, "failed to execute inventory %s", path)
	}
	return FromJSON(stdout.Bytes())
}
