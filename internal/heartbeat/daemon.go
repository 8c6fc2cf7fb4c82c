// Package heartbeat pushes this node's liveness to the Forge on a fixed
// cadence.
package heartbeat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/metrics"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/seal"
)

// Authority is the slice of the Forge client the daemon needs.
type Authority interface {
	Root() string
	Heartbeat(ctx context.Context, node string, epoch int64, sig string) error
}

// Daemon signs and posts a heartbeat every interval. Failures are logged and
// absorbed; the loop never exits on error.
type Daemon struct {
	forge    Authority
	node     string
	secret   string
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// New creates a heartbeat daemon.
func New(forge Authority, node, secret string, interval time.Duration, logger *zap.Logger, recorder *metrics.Recorder) *Daemon {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Daemon{
		forge:    forge,
		node:     node,
		secret:   secret,
		interval: interval,
		logger:   logger,
		metrics:  recorder,
		now:      time.Now,
	}
}

// Run starts the heartbeat loop until context cancellation.
func (d *Daemon) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(d.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		d.beat(ctx)
	}
}

func (d *Daemon) beat(ctx context.Context) {
	epoch := d.now().Unix()
	sig := seal.Sign(d.forge.Root(), epoch, d.secret)
	if err := d.forge.Heartbeat(ctx, d.node, epoch, sig); err != nil {
		if d.metrics != nil {
			d.metrics.ObserveHeartbeat("error")
			d.metrics.ObserveForgeError("heartbeat")
		}
		if d.logger != nil {
			d.logger.Warn("heartbeat push failed", zap.Int64("epoch", epoch), zap.Error(err))
		}
		return
	}
	if d.metrics != nil {
		d.metrics.ObserveHeartbeat("ok")
	}
	if d.logger != nil {
		d.logger.Debug("heartbeat pushed", zap.Int64("epoch", epoch))
	}
}
