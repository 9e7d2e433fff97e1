// Package modules is the host side of the module task: an executable that
// fleetctl uploads reads its parameters as a JSON object on stdin and
// reports a Result as JSON on stdout.
package modules

import (
	"encoding/json"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// Params is the merged data document a module receives.
type Params map[string]any

// Result is what each module reports.
type Result struct {
	Module  string `json:"module"`
	Changed bool   `json:"changed"`
	Failed  bool   `json:"failed"`
	Msg     string `json:"msg"`
}

type Module interface {
	Name() string
	Run(params Params) Result
}

// String returns params[key] when it holds a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Fail marks res failed with msg.
func Fail(res Result, msg string) Result {
	res.Failed = true
	res.Msg = msg
	return res
}

// Serve decodes params from in, runs m and encodes the result to out. It
// returns the process exit status: 0 on success, 1 when the module failed
// and 2 when the input could not be decoded.
func Serve(m Module, in io.Reader, out io.Writer) int {
	res := Result{Module: m.Name()}

	params := Params{}
	raw, err := io.ReadAll(in)
	if err == nil && len(raw) > 0 {
		err = json.Unmarshal(raw, &params)
	}
	status := 2
	if err != nil {
		res = Fail(res, pkgerrors.Wrap(err, "decode parameters").Error())
	} else {
		res = m.Run(params)
		res.Module = m.Name()
		status = 0
		if res.Failed {
			status = 1
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return 2
	}
	return status
}
