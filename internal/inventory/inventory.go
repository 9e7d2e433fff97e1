// Package inventory holds the ordered list of hosts a run may target and the
// loaders that build it from TOML, JSON, YAML or executable sources.
package inventory

import (
	"github.com/samber/lo"

	"github.com/eniac111/fleetctl/internal/tagexpr"
	"github.com/eniac111/fleetctl/internal/types"
)

// Inventory holds a list of hosts to manage.
type Inventory struct {
	Hosts []types.Host `json:"hosts" toml:"hosts" yaml:"hosts"`
}

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{Hosts: []types.Host{}}
}

// AddHost appends h. Duplicate ids are allowed.
func (inv *Inventory) AddHost(h types.Host) *Inventory {
	h.Normalize()
	inv.Hosts = append(inv.Hosts, h)
	return inv
}

// RemoveHost drops every host with the given id.
func (inv *Inventory) RemoveHost(id types.HostID) *Inventory {
	inv.Hosts = lo.Reject(inv.Hosts, func(h types.Host, _ int) bool { return h.ID == id })
	return inv
}

// GetHostByID returns the first host with the given id.
func (inv *Inventory) GetHostByID(id types.HostID) (types.Host, bool) {
	return lo.Find(inv.Hosts, func(h types.Host) bool { return h.ID == id })
}

// GetHostsByTagQuery returns the hosts whose tags satisfy query, in inventory
// order. A malformed query is an error, never an empty selection.
func (inv *Inventory) GetHostsByTagQuery(query string) ([]types.Host, error) {
	expr, err := tagexpr.Compile(query)
	if err != nil {
		return nil, err
	}
	return lo.Filter(inv.Hosts, func(h types.Host, _ int) bool {
		return tagexpr.MatchHost(expr, h)
	}), nil
}

func (inv *Inventory) normalize() {
	if inv.Hosts == nil {
		inv.Hosts = []types.Host{}
	}
	for i := range inv.Hosts {
		inv.Hosts[i].Normalize()
	}
}
