package control

import "sync/atomic"

// KillSwitch pauses the container-mutating loops (recovery watchtower, chaos
// injector) at runtime without restarting the agent. Coordination loops keep
// running so the node's federation view stays current while it stands down.
type KillSwitch struct {
	state atomic.Bool
}

// NewKillSwitch creates a kill switch with the provided default state.
func NewKillSwitch(enabled bool) *KillSwitch {
	ks := &KillSwitch{}
	ks.state.Store(enabled)
	return ks
}

// Enable pauses container mutations.
func (k *KillSwitch) Enable() {
	k.state.Store(true)
}

// Disable resumes container mutations.
func (k *KillSwitch) Disable() {
	k.state.Store(false)
}

// Enabled reports whether container mutations are currently paused.
func (k *KillSwitch) Enabled() bool {
	return k.state.Load()
}

// Set toggles the state directly.
func (k *KillSwitch) Set(enabled bool) {
	if enabled {
		k.Enable()
	} else {
		k.Disable()
	}
}
