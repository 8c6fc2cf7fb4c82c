package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the federation agent.
type Config struct {
	NodeID      string
	Environment string
	ForgeRoot   string
	Seal        string

	Heartbeat struct {
		Enabled  bool
		Interval time.Duration
	}

	Consensus struct {
		Enabled  bool
		Interval time.Duration
	}

	Chaos struct {
		Enabled         bool
		Interval        time.Duration
		KillProbability float64
	}

	Recovery struct {
		Enabled bool
	}

	// DemotionPolicy selects what a demoted leader does with owned
	// containers: "release" strips ownership and leaves them running,
	// "drain" additionally stops them.
	DemotionPolicy string

	Events struct {
		Backend      string
		RedisAddr    string
		RedisUser    string
		RedisPass    string
		RedisDB      int
		RedisChannel string
		KafkaBrokers []string
		KafkaTopic   string
	}

	DockerBinary     string
	LabelOverlayPath string
	KillSwitchOn     bool

	MetricsAddr     string
	LogLevel        string
	LogFile         string
	ShutdownTimeout time.Duration
}

const (
	DemotionRelease = "release"
	DemotionDrain   = "drain"
)

const (
	defaultHeartbeatInterval = 60 * time.Second
	defaultConsensusInterval = 180 * time.Second
	defaultChaosInterval     = 600 * time.Second
	defaultKillProbability   = 0.15
	defaultMetricsAddr       = ":9097"
	defaultShutdownTimeout   = 15 * time.Second
	defaultEventTopic        = "brh.events.v1"
)

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config

	cfg.ForgeRoot = strings.TrimSpace(os.Getenv("FORGE_DOMINION_ROOT"))
	if cfg.ForgeRoot == "" {
		return cfg, fmt.Errorf("FORGE_DOMINION_ROOT is required")
	}

	cfg.NodeID = strings.TrimSpace(os.Getenv("BRH_NODE_ID"))
	if cfg.NodeID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			return cfg, fmt.Errorf("BRH_NODE_ID is empty and hostname lookup failed")
		}
		cfg.NodeID = host
	}
	cfg.Environment = envWithDefault("BRH_ENV", "dev")
	cfg.Seal = strings.TrimSpace(os.Getenv("DOMINION_SEAL"))

	cfg.Heartbeat.Enabled = parseBoolEnv("BRH_HEARTBEAT_ENABLED", true)
	cfg.Heartbeat.Interval = parseDurationEnv("BRH_HEARTBEAT_INTERVAL", defaultHeartbeatInterval)
	if cfg.Heartbeat.Interval <= 0 {
		cfg.Heartbeat.Interval = defaultHeartbeatInterval
	}

	cfg.Consensus.Enabled = parseBoolEnv("BRH_CONSENSUS_ENABLED", true)
	cfg.Consensus.Interval = parseDurationEnv("BRH_CONSENSUS_INTERVAL", defaultConsensusInterval)
	if cfg.Consensus.Interval <= 0 {
		cfg.Consensus.Interval = defaultConsensusInterval
	}

	cfg.Chaos.Enabled = parseBoolEnv("BRH_CHAOS_ENABLED", false)
	cfg.Chaos.Interval = parseDurationEnv("BRH_CHAOS_INTERVAL", defaultChaosInterval)
	if cfg.Chaos.Interval <= 0 {
		cfg.Chaos.Interval = defaultChaosInterval
	}
	cfg.Chaos.KillProbability = parseFloat64Env("BRH_CHAOS_KILL_PROBABILITY", defaultKillProbability)
	if cfg.Chaos.KillProbability < 0 || cfg.Chaos.KillProbability > 1 {
		return cfg, fmt.Errorf("BRH_CHAOS_KILL_PROBABILITY must be within [0,1], got %v", cfg.Chaos.KillProbability)
	}

	cfg.Recovery.Enabled = parseBoolEnv("BRH_RECOVERY_ENABLED", true)

	cfg.DemotionPolicy = strings.ToLower(envWithDefault("BRH_DEMOTION_POLICY", DemotionRelease))
	switch cfg.DemotionPolicy {
	case DemotionRelease, DemotionDrain:
	default:
		return cfg, fmt.Errorf("BRH_DEMOTION_POLICY must be %q or %q, got %q", DemotionRelease, DemotionDrain, cfg.DemotionPolicy)
	}

	cfg.Events.Backend = strings.ToLower(envWithDefault("BRH_EVENT_SINK", "log"))
	switch cfg.Events.Backend {
	case "log", "redis", "kafka":
	default:
		return cfg, fmt.Errorf("BRH_EVENT_SINK must be log, redis or kafka, got %q", cfg.Events.Backend)
	}
	cfg.Events.RedisAddr = strings.TrimSpace(os.Getenv("BRH_EVENT_REDIS_ADDR"))
	cfg.Events.RedisUser = strings.TrimSpace(os.Getenv("BRH_EVENT_REDIS_USERNAME"))
	cfg.Events.RedisPass = strings.TrimSpace(os.Getenv("BRH_EVENT_REDIS_PASSWORD"))
	cfg.Events.RedisDB = int(parseIntEnv("BRH_EVENT_REDIS_DB", 0))
	cfg.Events.RedisChannel = strings.TrimSpace(os.Getenv("BRH_EVENT_REDIS_CHANNEL"))
	cfg.Events.KafkaBrokers = splitAndTrim(os.Getenv("BRH_EVENT_KAFKA_BROKERS"))
	cfg.Events.KafkaTopic = envWithDefault("BRH_EVENT_KAFKA_TOPIC", defaultEventTopic)
	if cfg.Events.Backend == "redis" && cfg.Events.RedisAddr == "" {
		return cfg, fmt.Errorf("redis event sink selected but BRH_EVENT_REDIS_ADDR is empty")
	}
	if cfg.Events.Backend == "kafka" && len(cfg.Events.KafkaBrokers) == 0 {
		return cfg, fmt.Errorf("kafka event sink selected but BRH_EVENT_KAFKA_BROKERS is empty")
	}

	cfg.DockerBinary = envWithDefault("BRH_DOCKER_BIN", "docker")
	cfg.LabelOverlayPath = strings.TrimSpace(os.Getenv("BRH_LABEL_OVERLAY_PATH"))
	if cfg.LabelOverlayPath != "" {
		abs, err := filepath.Abs(cfg.LabelOverlayPath)
		if err != nil {
			return cfg, fmt.Errorf("resolve BRH_LABEL_OVERLAY_PATH: %w", err)
		}
		cfg.LabelOverlayPath = abs
	}
	cfg.KillSwitchOn = parseBoolEnv("BRH_KILL_SWITCH_ENABLED", false)

	cfg.MetricsAddr = envWithDefault("METRICS_ADDR", defaultMetricsAddr)
	cfg.LogLevel = strings.ToLower(envWithDefault("LOG_LEVEL", "info"))
	cfg.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))
	cfg.ShutdownTimeout = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)

	return cfg, nil
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func envWithDefault(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func parseBoolEnv(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseFloat64Env(key string, def float64) float64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}

func parseIntEnv(key string, def int64) int64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return i
}
