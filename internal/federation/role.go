package federation

import (
	"context"
	"sync"
)

// Hooks are the side effects of a leadership edge. Both may be nil. They run
// inside the role's critical section so that no reader observes a changed
// leader before the corresponding hook has fired.
type Hooks struct {
	OnPromote func(ctx context.Context)
	OnDemote  func(ctx context.Context)
}

// Role is this node's belief about the current leader, as last told by the
// Forge. Leader ID and lease token always change together under one lock so
// promotion detection never sees a torn pair.
type Role struct {
	mu       sync.Mutex
	selfID   string
	leaderID string
	lease    string
	hooks    Hooks
}

// NewRole builds the role state for a node. The process starts with no
// leader; the first Forge poll establishes one.
func NewRole(selfID string, hooks Hooks) *Role {
	return &Role{selfID: selfID, hooks: hooks}
}

// Apply is the only mutator of leader state. Promotion and demotion hooks
// are edge-triggered on the self-leadership boolean: re-confirming the same
// leader, or swapping between two foreign leaders, fires nothing.
func (r *Role) Apply(ctx context.Context, leaderID, lease string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasSelf := r.leaderID == r.selfID && r.selfID != ""
	r.leaderID = leaderID
	r.lease = lease
	isSelf := leaderID == r.selfID && r.selfID != ""

	switch {
	case !wasSelf && isSelf:
		if r.hooks.OnPromote != nil {
			r.hooks.OnPromote(ctx)
		}
	case wasSelf && !isSelf:
		if r.hooks.OnDemote != nil {
			r.hooks.OnDemote(ctx)
		}
	}
}

// AmLeader reports whether this node currently believes it is the leader.
func (r *Role) AmLeader() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaderID == r.selfID && r.selfID != ""
}

// LeaderID returns the current leader, or "" when none is known.
func (r *Role) LeaderID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaderID
}

// LeaseToken returns the opaque lease issued alongside the current leader.
// It is carried through from the Forge, never validated locally.
func (r *Role) LeaseToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lease
}

// SelfID returns this node's identity.
func (r *Role) SelfID() string {
	return r.selfID
}
