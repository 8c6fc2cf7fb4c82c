// Package chaos randomly kills a running container to prove the recovery
// watchtower actually works. It fires on leaders and witnesses alike.
package chaos

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/control"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/events"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/metrics"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/runtime"
)

// Injector is the chaos loop.
type Injector struct {
	runtime     runtime.Runtime
	killSwitch  *control.KillSwitch
	emitter     events.Emitter
	logger      *zap.Logger
	metrics     *metrics.Recorder
	interval    time.Duration
	probability float64
	rng         *rand.Rand
}

// New creates a chaos injector with the given cadence and kill probability.
func New(rt runtime.Runtime, kill *control.KillSwitch, interval time.Duration, probability float64, emitter events.Emitter, logger *zap.Logger, recorder *metrics.Recorder) *Injector {
	if interval <= 0 {
		interval = 600 * time.Second
	}
	return &Injector{
		runtime:     rt,
		killSwitch:  kill,
		emitter:     emitter,
		logger:      logger,
		metrics:     recorder,
		interval:    interval,
		probability: probability,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run starts the chaos loop until context cancellation.
func (i *Injector) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(i.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if i.killSwitch != nil && i.killSwitch.Enabled() {
			if i.logger != nil {
				i.logger.Debug("chaos skipped due to kill switch")
			}
			continue
		}
		i.strike(ctx)
	}
}

func (i *Injector) strike(ctx context.Context) {
	if i.rng.Float64() > i.probability {
		return
	}

	containers, err := i.runtime.List(ctx, false)
	if err != nil {
		if i.logger != nil {
			i.logger.Warn("chaos list failed", zap.Error(err))
		}
		return
	}
	if len(containers) == 0 {
		if i.logger != nil {
			i.logger.Debug("chaos cycle skipped, nothing running")
		}
		return
	}

	victim := containers[i.rng.Intn(len(containers))]
	if err := i.runtime.Kill(ctx, victim.ID); err != nil {
		if i.logger != nil {
			i.logger.Warn("chaos kill failed", zap.String("container", victim.Name), zap.Error(err))
		}
		return
	}
	if i.metrics != nil {
		i.metrics.ObserveChaosKill()
	}
	if i.emitter != nil {
		_ = i.emitter.Emit(ctx, fmt.Sprintf("CHAOS: killed container %s", victim.Name))
	}
	if i.logger != nil {
		i.logger.Info("chaos killed container", zap.String("container", victim.Name))
	}
}
