package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/control"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/federation"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/metrics"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/runtime"
)

func buildHTTPServer(addr string, registry *prometheus.Registry, rt runtime.Runtime, peers *federation.Registry, role *federation.Role, kill *control.KillSwitch, recorder *metrics.Recorder, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if checker, ok := rt.(runtime.AvailabilityChecker); ok && checker != nil {
			if err := checker.Available(ctx); err != nil {
				if logger != nil {
					logger.Warn("health check failed", zap.Error(err))
				}
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Inbound peer liveness. Peers self-report; the payload signature is
	// recorded but not verified, matching the established trust model.
	mux.HandleFunc("/federation/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Node  string `json:"node"`
			Epoch int64  `json:"epoch"`
			Sig   string `json:"sig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Node == "" {
			http.Error(w, "invalid heartbeat payload", http.StatusBadRequest)
			return
		}
		peers.RecordHeartbeat(r.Context(), body.Node, body.Epoch, body.Sig)
		if recorder != nil {
			recorder.ObserveHeartbeatReceived()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/federation/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		resp := map[string]any{
			"node":         role.SelfID(),
			"leader":       role.LeaderID(),
			"is_leader":    role.AmLeader(),
			"known_peers":  peers.Len(),
			"active_peers": len(peers.ActivePeers(time.Now())),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/control/kill-switch", func(w http.ResponseWriter, r *http.Request) {
		if kill == nil {
			http.Error(w, "kill switch not configured", http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]bool{"enabled": kill.Enabled()})
		case http.MethodPost:
			enabledParam := r.URL.Query().Get("enabled")
			if enabledParam == "" {
				http.Error(w, "missing enabled query parameter", http.StatusBadRequest)
				return
			}
			state, err := strconv.ParseBool(enabledParam)
			if err != nil {
				http.Error(w, "invalid enabled value", http.StatusBadRequest)
				return
			}
			kill.Set(state)
			if recorder != nil {
				recorder.SetStanddown(state)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	return &http.Server{Addr: addr, Handler: mux}
}

func buildRotatingLogger(zcfg zap.Config, path string) (*zap.Logger, error) {
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	})
	encoder := zapcore.NewJSONEncoder(zcfg.EncoderConfig)
	core := zapcore.NewCore(encoder, writer, zcfg.Level)
	return zap.New(core), nil
}
