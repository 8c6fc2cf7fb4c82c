// Package handover implements the container-ownership side effects of a
// leadership edge: a promoted node adopts the environment's containers, a
// demoted node gives them up.
package handover

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/events"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/federation"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/metrics"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/runtime"
)

// Policy selects the demotion behavior.
type Policy string

const (
	// PolicyRelease strips ownership and leaves containers running. This is
	// the default: the incoming leader adopts them in place.
	PolicyRelease Policy = "release"
	// PolicyDrain strips ownership and stops the containers, forcing the
	// incoming leader to restart them through the watchtower.
	PolicyDrain Policy = "drain"
)

// Handover owns the promotion and demotion container transitions.
type Handover struct {
	runtime  runtime.Runtime
	registry *federation.Registry
	selfID   string
	env      string
	policy   Policy
	emitter  events.Emitter
	logger   *zap.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// New creates a handover handler for this node and environment.
func New(rt runtime.Runtime, registry *federation.Registry, selfID, env string, policy Policy, emitter events.Emitter, logger *zap.Logger, recorder *metrics.Recorder) *Handover {
	if policy != PolicyDrain {
		policy = PolicyRelease
	}
	return &Handover{
		runtime:  rt,
		registry: registry,
		selfID:   selfID,
		env:      env,
		policy:   policy,
		emitter:  emitter,
		logger:   logger,
		metrics:  recorder,
		now:      time.Now,
	}
}

// Adopt claims ownership of every container in this node's environment that
// has no owner, or whose owner has gone silent past the staleness window.
// Per-container failures are logged and the sweep continues.
func (h *Handover) Adopt(ctx context.Context) {
	if h.metrics != nil {
		h.metrics.ObservePromotion()
	}
	if h.emitter != nil {
		_ = h.emitter.Emit(ctx, fmt.Sprintf("PROMOTION: %s assuming leadership of env %s", h.selfID, h.env))
	}
	if h.runtime == nil {
		return
	}

	containers, err := h.runtime.List(ctx, true)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("adopt: list containers failed", zap.Error(err))
		}
		return
	}

	active := make(map[string]bool)
	for _, p := range h.registry.ActivePeers(h.now()) {
		active[p.ID] = true
	}

	for _, c := range containers {
		if c.Labels[runtime.EnvLabel] != h.env {
			continue
		}
		owner := c.Labels[runtime.OwnerLabel]
		if owner == h.selfID {
			continue
		}
		if owner != "" && active[owner] {
			// The owner is still heartbeating; leave its containers alone.
			continue
		}
		if err := h.runtime.UpdateLabels(ctx, c.ID, map[string]string{runtime.OwnerLabel: h.selfID}); err != nil {
			if h.logger != nil {
				h.logger.Warn("adopt: claim failed", zap.String("container", c.Name), zap.Error(err))
			}
			continue
		}
		if h.logger != nil {
			h.logger.Info("adopted container", zap.String("container", c.Name), zap.String("previous_owner", owner))
		}
	}
}

// Relinquish strips this node's ownership labels. Under the drain policy the
// containers are also stopped so the next leader restarts them cleanly.
func (h *Handover) Relinquish(ctx context.Context) {
	if h.metrics != nil {
		h.metrics.ObserveDemotion()
	}
	if h.emitter != nil {
		_ = h.emitter.Emit(ctx, fmt.Sprintf("DEMOTION: %s stepping down in env %s", h.selfID, h.env))
	}
	if h.runtime == nil {
		return
	}

	containers, err := h.runtime.List(ctx, true)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("relinquish: list containers failed", zap.Error(err))
		}
		return
	}
	for _, c := range containers {
		if c.Labels[runtime.OwnerLabel] != h.selfID {
			continue
		}
		if err := h.runtime.UpdateLabels(ctx, c.ID, map[string]string{runtime.OwnerLabel: ""}); err != nil {
			if h.logger != nil {
				h.logger.Warn("relinquish: release failed", zap.String("container", c.Name), zap.Error(err))
			}
			continue
		}
		if h.policy == PolicyDrain && c.Running() {
			if err := h.runtime.Kill(ctx, c.ID); err != nil && h.logger != nil {
				h.logger.Warn("relinquish: drain stop failed", zap.String("container", c.Name), zap.Error(err))
			}
		}
	}
}
