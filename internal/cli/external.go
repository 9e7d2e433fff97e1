package cli

import (
	"errors"
	"os"
	osexec "os/exec"

	"github.com/eniac111/fleetctl/internal/types"
)

// ExternalPrefix names the executables that extend fleetctl.
const ExternalPrefix = "fleetctl-"

// external runs fleetctl-<name> with the host selection in its environment
// and exits with its status.
func (a *app) external(name string, args []string) error {
	bin, err := osexec.LookPath(ExternalPrefix + name)
	if err != nil {
		return types.Errorf(types.ErrOther, "unknown command %q: %s%s not found in $PATH", name, ExternalPrefix, name)
	}

	cmd := osexec.Command(bin, args...)
	cmd.Stdin = a.in
	cmd.Stdout = a.out
	cmd.Stderr = a.errOut
	cmd.Env = append(os.Environ(),
		"FLEETCTL_INVENTORY="+a.cfg.Inventory,
		"FLEETCTL_HOST_ID="+a.cfg.HostID,
		"FLEETCTL_HOST_TAGS="+a.cfg.HostTags,
	)
	a.logger.Debug().Str("bin", bin).Strs("args", args).Msg("running external command")

	err = cmd.Run()
	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal.
			code = 127
		}
		return &ExitError{Code: code}
	}
	if err != nil {
		return types.Wrapf(types.ErrCommandExecutionFailed, err, "run %s", bin)
	}
	return nil
}
