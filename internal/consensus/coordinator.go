// Package consensus runs the advisory election over the peer registry,
// reports the result to the Forge, and tracks the Forge's authoritative
// leader designation.
package consensus

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/events"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/federation"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/forge"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/metrics"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/seal"
)

// pollInterval is how often the Forge is asked for the authoritative leader.
// Intentionally short and fixed: leadership changes must propagate fast
// regardless of the broadcast cadence.
const pollInterval = 10 * time.Second

// Authority is the slice of the Forge client the coordinator needs.
type Authority interface {
	PublishConsensus(ctx context.Context, epoch int64, leader string, peers []string, sig string) error
	LedgerFeedback(ctx context.Context, epoch int64, leader string, peers []string, sig string) error
	CurrentLeader(ctx context.Context) (forge.Designation, error)
}

// Coordinator owns the broadcast and leader-poll loops.
type Coordinator struct {
	forge     Authority
	registry  *federation.Registry
	role      *federation.Role
	secret    string
	broadcast time.Duration
	emitter   events.Emitter
	logger    *zap.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

// New creates a coordinator.
func New(authority Authority, registry *federation.Registry, role *federation.Role, secret string, broadcastInterval time.Duration, emitter events.Emitter, logger *zap.Logger, recorder *metrics.Recorder) *Coordinator {
	if broadcastInterval <= 0 {
		broadcastInterval = 180 * time.Second
	}
	return &Coordinator{
		forge:     authority,
		registry:  registry,
		role:      role,
		secret:    secret,
		broadcast: broadcastInterval,
		emitter:   emitter,
		logger:    logger,
		metrics:   recorder,
		now:       time.Now,
	}
}

// RunBroadcast elects and reports on the broadcast cadence until context
// cancellation. Network failures are logged and absorbed.
func (c *Coordinator) RunBroadcast(ctx context.Context) {
	for {
		timer := time.NewTimer(c.broadcast)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		c.broadcastOnce(ctx)
	}
}

func (c *Coordinator) broadcastOnce(ctx context.Context) {
	now := c.now()
	active := c.registry.ActivePeers(now)
	leader := federation.ElectLeader(active)

	peers := make([]string, 0, len(active))
	for _, p := range active {
		peers = append(peers, p.ID)
	}
	if c.metrics != nil {
		c.metrics.SetActivePeers(len(peers))
	}

	subject := leader
	if subject == "" {
		subject = "none"
	}
	epoch := now.Unix()
	sig := seal.Sign(subject, epoch, c.secret)

	if err := c.forge.PublishConsensus(ctx, epoch, leader, peers, sig); err != nil {
		if c.metrics != nil {
			c.metrics.ObserveConsensusRound("error")
			c.metrics.ObserveForgeError("consensus")
		}
		if c.logger != nil {
			c.logger.Warn("consensus broadcast failed", zap.String("leader", leader), zap.Error(err))
		}
	} else {
		if c.metrics != nil {
			c.metrics.ObserveConsensusRound("ok")
		}
		// Ledger feedback is fire-and-forget telemetry; its failure never
		// surfaces beyond a debug line.
		if err := c.forge.LedgerFeedback(ctx, epoch, leader, peers, sig); err != nil && c.logger != nil {
			c.logger.Debug("ledger feedback dropped", zap.Error(err))
		}
	}

	if c.emitter != nil {
		_ = c.emitter.Emit(ctx, fmt.Sprintf("CONSENSUS: elected %s from %d active peers", subject, len(peers)))
	}
}

// RunPoll queries the Forge for the authoritative leader every poll interval
// and applies any change to the role state. Failures are logged and the loop
// continues; the previous designation stays in effect.
func (c *Coordinator) RunPoll(ctx context.Context) {
	for {
		timer := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		c.pollOnce(ctx)
	}
}

func (c *Coordinator) pollOnce(ctx context.Context) {
	designation, err := c.forge.CurrentLeader(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveLeaderPoll("error")
			c.metrics.ObserveForgeError("leader")
		}
		if c.logger != nil {
			c.logger.Warn("leader poll failed", zap.Error(err))
		}
		return
	}
	c.role.Apply(ctx, designation.Leader, designation.Lease)
	if c.metrics != nil {
		c.metrics.ObserveLeaderPoll("ok")
		c.metrics.SetLeader(c.role.AmLeader())
	}
}
