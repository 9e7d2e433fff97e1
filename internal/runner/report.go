package runner

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/eniac111/fleetctl/internal/types"
)

// Outcome is the result of applying a task to one host.
type Outcome struct {
	Host    types.HostID
	Success bool
	Info    any
	Error   string
}

type successView struct {
	Host    types.HostID `json:"host"    yaml:"host"`
	Success bool         `json:"success" yaml:"success"`
	Info    any          `json:"info"    yaml:"info"`
}

type failureView struct {
	Host    types.HostID `json:"host"    yaml:"host"`
	Success bool         `json:"success" yaml:"success"`
	Error   string       `json:"error"   yaml:"error"`
}

func (o Outcome) view() any {
	if o.Success {
		return successView{Host: o.Host, Success: true, Info: o.Info}
	}
	return failureView{Host: o.Host, Success: false, Error: o.Error}
}

// MarshalJSON renders {"host","success":true,"info"} or
// {"host","success":false,"error"}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.view())
}

func (o Outcome) MarshalYAML() (any, error) {
	return o.view(), nil
}

// Report holds one outcome per host, in the order the hosts were given.
type Report []Outcome

// Failed returns the number of hosts whose apply step failed.
func (r Report) Failed() int {
	n := 0
	for _, o := range r {
		if !o.Success {
			n++
		}
	}
	return n
}

// Err aggregates the failed outcomes, or returns nil when every host
// succeeded.
func (r Report) Err() error {
	var result *multierror.Error
	for _, o := range r {
		if !o.Success {
			result = multierror.Append(result, fmt.Errorf("%s: %s", o.Host, o.Error))
		}
	}
	return result.ErrorOrNil()
}

func newOutcome(host types.Host, info any, err error) Outcome {
	if err != nil {
		return Outcome{Host: host.ID, Success: false, Error: err.Error()}
	}
	return Outcome{Host: host.ID, Success: true, Info: info}
}
