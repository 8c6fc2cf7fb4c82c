// Package watchtower reconciles container state with this node's federation
// role. A leader restarts containers that died; a witness releases ownership
// labels it should no longer hold.
package watchtower

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/control"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/events"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/federation"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/metrics"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/runtime"
)

// scanInterval is the fixed reconciliation cadence.
const scanInterval = 120 * time.Second

// Watchtower is the recovery loop.
type Watchtower struct {
	runtime    runtime.Runtime
	role       *federation.Role
	killSwitch *control.KillSwitch
	emitter    events.Emitter
	logger     *zap.Logger
	metrics    *metrics.Recorder
	interval   time.Duration
}

// New creates a watchtower.
func New(rt runtime.Runtime, role *federation.Role, kill *control.KillSwitch, emitter events.Emitter, logger *zap.Logger, recorder *metrics.Recorder) *Watchtower {
	return &Watchtower{
		runtime:    rt,
		role:       role,
		killSwitch: kill,
		emitter:    emitter,
		logger:     logger,
		metrics:    recorder,
		interval:   scanInterval,
	}
}

// Run starts the reconciliation loop until context cancellation. Each cycle
// is best-effort: per-container failures are logged and the scan continues.
func (w *Watchtower) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(w.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if w.killSwitch != nil && w.killSwitch.Enabled() {
			if w.logger != nil {
				w.logger.Debug("watchtower skipped due to kill switch")
			}
			continue
		}
		w.scan(ctx)
	}
}

func (w *Watchtower) scan(ctx context.Context) {
	if w.role.AmLeader() {
		w.recoverAsLeader(ctx)
	} else {
		w.releaseAsWitness(ctx)
	}
}

// recoverAsLeader restarts every container that is not running.
func (w *Watchtower) recoverAsLeader(ctx context.Context) {
	containers, err := w.runtime.List(ctx, true)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("watchtower list failed", zap.Error(err))
		}
		return
	}
	for _, c := range containers {
		if c.Running() {
			continue
		}
		if err := w.runtime.Start(ctx, c.ID); err != nil {
			if w.logger != nil {
				w.logger.Warn("watchtower restart failed", zap.String("container", c.Name), zap.Error(err))
			}
			continue
		}
		if w.metrics != nil {
			w.metrics.ObserveRestart()
		}
		if w.emitter != nil {
			_ = w.emitter.Emit(ctx, fmt.Sprintf("RECOVERY: restarted container %s", c.Name))
		}
	}
}

// releaseAsWitness strips this node's ownership label from containers it
// should not own, e.g. leftovers from a previous term as leader.
func (w *Watchtower) releaseAsWitness(ctx context.Context) {
	containers, err := w.runtime.List(ctx, true)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("watchtower list failed", zap.Error(err))
		}
		return
	}
	self := w.role.SelfID()
	for _, c := range containers {
		if c.Labels[runtime.OwnerLabel] != self {
			continue
		}
		if err := w.runtime.UpdateLabels(ctx, c.ID, map[string]string{runtime.OwnerLabel: ""}); err != nil {
			if w.logger != nil {
				w.logger.Warn("watchtower ownership release failed", zap.String("container", c.Name), zap.Error(err))
			}
			continue
		}
		if w.metrics != nil {
			w.metrics.ObserveOwnershipRelease()
		}
		if w.emitter != nil {
			_ = w.emitter.Emit(ctx, fmt.Sprintf("RECOVERY: released stray ownership of %s", c.Name))
		}
	}
}
