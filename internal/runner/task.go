package runner

import "github.com/eniac111/fleetctl/internal/types"

// Task describes one operation that can be run on a host. D is the per-host
// context computed by Prepare and handed to Apply.
//
// A Task is shared by every host of a run and may be called concurrently;
// implementations must not keep per-call state on the receiver.
type Task[D any] interface {
	// Prepare computes the per-host context without touching the network.
	// It is called for every host before any Apply.
	Prepare(host types.Host) (D, error)

	// Apply performs the remote side effect. The returned value must be JSON
	// marshalable and becomes the host's report info.
	Apply(host types.Host, data D) (any, error)
}
