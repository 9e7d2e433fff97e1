package shell

import (
	"bytes"
	"os/exec"

	"github.com/eniac111/fleetctl/internal/modules"
)

// Module runs params["cmd"] through sh -c, optionally in params["chdir"].
type Module struct{}

func (Module) Name() string { return "shell" }

func (m Module) Run(params modules.Params) modules.Result {
	res := modules.Result{Module: m.Name()}

	cmdString := params.String("cmd")
	if cmdString == "" {
		return modules.Fail(res, "Missing 'cmd' parameter for shell module")
	}

	cmd := exec.Command("sh", "-c", cmdString)
	cmd.Dir = params.String("chdir")
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return modules.Fail(res, "Command failed: "+err.Error()+": "+errBuf.String())
	}

	// A command that ran is assumed to have changed something.
	res.Changed = true
	res.Msg = outBuf.String()
	return res
}
