package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes Prometheus metrics for the federation agent.
type Recorder struct {
	heartbeats     *prometheus.CounterVec
	heartbeatsRecv prometheus.Counter
	consensusRound *prometheus.CounterVec
	leaderPolls    *prometheus.CounterVec
	promotions     prometheus.Counter
	demotions      prometheus.Counter
	restarts       prometheus.Counter
	releases       prometheus.Counter
	chaosKills     prometheus.Counter
	forgeErrors    *prometheus.CounterVec
	isLeader       prometheus.Gauge
	activePeers    prometheus.Gauge
	standdown      prometheus.Gauge
}

// NewRecorder registers metrics with the provided registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "federation_heartbeats_sent_total",
			Help: "Heartbeats pushed to the Forge, by result",
		}, []string{"result"}),
		heartbeatsRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "federation_heartbeats_received_total",
			Help: "Peer heartbeats recorded in the local registry",
		}),
		consensusRound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "federation_consensus_rounds_total",
			Help: "Consensus broadcast rounds, by result",
		}, []string{"result"}),
		leaderPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "federation_leader_polls_total",
			Help: "Forge leader polls, by result",
		}, []string{"result"}),
		promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "federation_promotions_total",
			Help: "Times this node was promoted to leader",
		}),
		demotions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "federation_demotions_total",
			Help: "Times this node was demoted to witness",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recovery_container_restarts_total",
			Help: "Containers restarted by the recovery watchtower",
		}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recovery_ownership_releases_total",
			Help: "Stray ownership labels stripped by a witness node",
		}),
		chaosKills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chaos_kills_total",
			Help: "Containers killed by the chaos injector",
		}),
		forgeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_request_errors_total",
			Help: "Failed Forge requests, by endpoint",
		}, []string{"endpoint"}),
		isLeader: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "federation_is_leader",
			Help: "1 when this node believes it is the leader",
		}),
		activePeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "federation_active_peers",
			Help: "Peers inside the staleness window at the last election",
		}),
		standdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agent_standdown",
			Help: "1 when container-mutating loops are paused",
		}),
	}
	reg.MustRegister(
		r.heartbeats, r.heartbeatsRecv, r.consensusRound, r.leaderPolls,
		r.promotions, r.demotions, r.restarts, r.releases, r.chaosKills,
		r.forgeErrors, r.isLeader, r.activePeers, r.standdown,
	)
	return r
}

// ObserveHeartbeat records a heartbeat push outcome.
func (r *Recorder) ObserveHeartbeat(result string) {
	if result == "" {
		result = "unknown"
	}
	r.heartbeats.WithLabelValues(result).Inc()
}

// ObserveHeartbeatReceived counts an inbound peer heartbeat.
func (r *Recorder) ObserveHeartbeatReceived() { r.heartbeatsRecv.Inc() }

// ObserveConsensusRound records a broadcast round outcome.
func (r *Recorder) ObserveConsensusRound(result string) {
	if result == "" {
		result = "unknown"
	}
	r.consensusRound.WithLabelValues(result).Inc()
}

// ObserveLeaderPoll records a leader poll outcome.
func (r *Recorder) ObserveLeaderPoll(result string) {
	if result == "" {
		result = "unknown"
	}
	r.leaderPolls.WithLabelValues(result).Inc()
}

// ObservePromotion increments the promotion counter.
func (r *Recorder) ObservePromotion() { r.promotions.Inc() }

// ObserveDemotion increments the demotion counter.
func (r *Recorder) ObserveDemotion() { r.demotions.Inc() }

// ObserveRestart counts a watchtower container restart.
func (r *Recorder) ObserveRestart() { r.restarts.Inc() }

// ObserveOwnershipRelease counts a stripped ownership label.
func (r *Recorder) ObserveOwnershipRelease() { r.releases.Inc() }

// ObserveChaosKill counts a chaos-injected container kill.
func (r *Recorder) ObserveChaosKill() { r.chaosKills.Inc() }

// ObserveForgeError counts a failed request against a Forge endpoint.
func (r *Recorder) ObserveForgeError(endpoint string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	r.forgeErrors.WithLabelValues(endpoint).Inc()
}

// SetLeader toggles the leadership gauge.
func (r *Recorder) SetLeader(leader bool) {
	if leader {
		r.isLeader.Set(1)
	} else {
		r.isLeader.Set(0)
	}
}

// SetActivePeers records the active-set size observed by the last election.
func (r *Recorder) SetActivePeers(count int) {
	r.activePeers.Set(float64(count))
}

// SetStanddown toggles the standdown gauge.
func (r *Recorder) SetStanddown(enabled bool) {
	if enabled {
		r.standdown.Set(1)
	} else {
		r.standdown.Set(0)
	}
}

// Handler exposes the registry over HTTP.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
