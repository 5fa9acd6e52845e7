// Package auth implements the capability checks used by the account control
// components.
package auth

import (
	"sync"

	"github.com/babylonlabs-io/account-control/types"
)

var _ types.Authorizer = (*RoleTable)(nil)

// RoleTable grants capabilities to actor identifiers.
type RoleTable struct {
	// Protects roles
	mu    sync.RWMutex
	roles map[types.Capability]map[string]struct{}
}

func NewRoleTable(assignments map[types.Capability][]string) *RoleTable {
	rt := &RoleTable{roles: make(map[types.Capability]map[string]struct{})}
	for capability, actors := range assignments {
		for _, actor := range actors {
			rt.grantLocked(actor, capability)
		}
	}
	return rt
}

func (rt *RoleTable) Check(actor string, capability types.Capability) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	_, ok := rt.roles[capability][actor]
	return ok
}

func (rt *RoleTable) Grant(actor string, capability types.Capability) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.grantLocked(actor, capability)
}

func (rt *RoleTable) grantLocked(actor string, capability types.Capability) {
	actors, ok := rt.roles[capability]
	if !ok {
		actors = make(map[string]struct{})
		rt.roles[capability] = actors
	}
	actors[actor] = struct{}{}
}

func (rt *RoleTable) Revoke(actor string, capability types.Capability) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	delete(rt.roles[capability], actor)
}

// Holders returns the number of actors holding capability.
func (rt *RoleTable) Holders(capability types.Capability) int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	return len(rt.roles[capability])
}
