package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/chaos"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/config"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/consensus"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/control"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/events"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/federation"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/forge"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/handover"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/heartbeat"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/metrics"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/runtime"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/watchtower"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	emitter, emitterCloser := buildEmitter(ctx, cfg, logger)
	if emitterCloser != nil {
		defer emitterCloser()
	}

	forgeClient, err := forge.NewClient(cfg.ForgeRoot)
	if err != nil {
		logger.Fatal("invalid forge root", zap.String("root", cfg.ForgeRoot), zap.Error(err))
	}
	logger.Info("agent starting",
		zap.String("node", cfg.NodeID),
		zap.String("env", cfg.Environment),
		zap.String("forge_root", forgeClient.Root()),
	)
	if cfg.Seal == "" {
		logger.Warn("DOMINION_SEAL is empty; federation signatures carry no authentication")
	}

	containerRuntime, runtimeAvailable := buildRuntime(ctx, cfg, logger)

	killSwitch := control.NewKillSwitch(cfg.KillSwitchOn)
	recorder.SetStanddown(killSwitch.Enabled())

	peers := federation.NewRegistry(emitter)
	mover := handover.New(containerRuntime, peers, cfg.NodeID, cfg.Environment, handover.Policy(cfg.DemotionPolicy), emitter, logger, recorder)
	role := federation.NewRole(cfg.NodeID, federation.Hooks{
		OnPromote: mover.Adopt,
		OnDemote:  mover.Relinquish,
	})

	if cfg.Heartbeat.Enabled {
		daemon := heartbeat.New(forgeClient, cfg.NodeID, cfg.Seal, cfg.Heartbeat.Interval, logger, recorder)
		go daemon.Run(ctx)
	}

	coordinator := consensus.New(forgeClient, peers, role, cfg.Seal, cfg.Consensus.Interval, emitter, logger, recorder)
	if cfg.Consensus.Enabled {
		go coordinator.RunBroadcast(ctx)
	}
	go coordinator.RunPoll(ctx)

	if cfg.Recovery.Enabled && runtimeAvailable {
		tower := watchtower.New(containerRuntime, role, killSwitch, emitter, logger, recorder)
		go tower.Run(ctx)
	} else if cfg.Recovery.Enabled {
		logger.Warn("recovery watchtower disabled, container runtime unavailable")
	}

	if cfg.Chaos.Enabled && runtimeAvailable {
		injector := chaos.New(containerRuntime, killSwitch, cfg.Chaos.Interval, cfg.Chaos.KillProbability, emitter, logger, recorder)
		go injector.Run(ctx)
		logger.Info("chaos injector armed",
			zap.Duration("interval", cfg.Chaos.Interval),
			zap.Float64("kill_probability", cfg.Chaos.KillProbability),
		)
	}

	server := buildHTTPServer(cfg.MetricsAddr, registry, containerRuntime, peers, role, killSwitch, recorder, logger)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("agent server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx) //nolint:errcheck
	logger.Info("agent shutdown complete")
}

func buildRuntime(ctx context.Context, cfg config.Config, logger *zap.Logger) (runtime.Runtime, bool) {
	docker, err := runtime.NewDocker(runtime.DockerOptions{
		Binary:      cfg.DockerBinary,
		OverlayPath: cfg.LabelOverlayPath,
		Logger:      logger,
	})
	if err != nil {
		logger.Warn("container runtime init failed", zap.Error(err))
		return nil, false
	}
	if err := docker.Available(ctx); err != nil {
		logger.Warn("container runtime unavailable", zap.Error(err))
		return docker, false
	}
	return docker, true
}

func buildEmitter(ctx context.Context, cfg config.Config, logger *zap.Logger) (events.Emitter, func()) {
	logSink := events.NewLogEmitter(logger)
	switch cfg.Events.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Events.RedisAddr,
			Username: cfg.Events.RedisUser,
			Password: cfg.Events.RedisPass,
			DB:       cfg.Events.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis event sink", zap.Error(err))
		}
		sink, err := events.NewRedisEmitter(events.RedisOptions{
			Client:  client,
			Channel: cfg.Events.RedisChannel,
			NodeID:  cfg.NodeID,
		})
		if err != nil {
			logger.Fatal("failed to create redis event sink", zap.Error(err))
		}
		return events.NewFanout(logSink, sink), func() { _ = client.Close() }
	case "kafka":
		producer, err := events.NewSyncProducer(cfg.Events.KafkaBrokers, "brh-"+cfg.NodeID)
		if err != nil {
			logger.Fatal("failed to create kafka event producer", zap.Error(err))
		}
		sink, err := events.NewKafkaEmitter(events.KafkaOptions{
			Producer: producer,
			Topic:    cfg.Events.KafkaTopic,
			NodeID:   cfg.NodeID,
		})
		if err != nil {
			producer.Close()
			logger.Fatal("failed to create kafka event sink", zap.Error(err))
		}
		return events.NewFanout(logSink, sink), func() { _ = sink.Close() }
	default:
		return logSink, nil
	}
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	switch cfg.LogLevel {
	case "debug":
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zcfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	if cfg.LogFile != "" {
		return buildRotatingLogger(zcfg, cfg.LogFile)
	}
	return zcfg.Build()
}
