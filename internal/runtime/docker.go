package runtime

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Docker drives containers through the docker CLI.
//
// The docker daemon cannot mutate labels on an existing container, so label
// updates land in a persisted overlay that List merges back over the
// daemon's view. Ownership handover therefore survives agent restarts
// without recreating containers.
type Docker struct {
	bin     string
	overlay *LabelOverlay
	logger  *zap.Logger
	runCmd  commandRunner
}

type commandRunner func(ctx context.Context, args ...string) ([]byte, error)

// DockerOptions configure the docker backend.
type DockerOptions struct {
	Binary      string
	OverlayPath string
	Logger      *zap.Logger
}

// NewDocker constructs the docker-CLI runtime backend.
func NewDocker(opts DockerOptions) (*Docker, error) {
	bin := strings.TrimSpace(opts.Binary)
	if bin == "" {
		bin = "docker"
	}
	overlay, err := OpenLabelOverlay(opts.OverlayPath)
	if err != nil {
		return nil, err
	}
	d := &Docker{bin: bin, overlay: overlay, logger: opts.Logger}
	d.runCmd = d.run
	return d, nil
}

// Available probes the docker daemon.
func (d *Docker) Available(ctx context.Context) error {
	if _, err := d.runCmd(ctx, "version", "--format", "{{.Server.Version}}"); err != nil {
		return fmt.Errorf("runtime: docker unavailable: %w", err)
	}
	return nil
}

// psLine mirrors the fields of `docker ps --format {{json .}}`.
type psLine struct {
	ID     string `json:"ID"`
	Names  string `json:"Names"`
	State  string `json:"State"`
	Labels string `json:"Labels"`
}

// List returns containers with overlay labels merged in.
func (d *Docker) List(ctx context.Context, all bool) ([]Container, error) {
	args := []string{"ps", "--no-trunc", "--format", "{{json .}}"}
	if all {
		args = append(args, "-a")
	}
	out, err := d.runCmd(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("runtime: list containers: %w", err)
	}

	var containers []Container
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ps psLine
		if err := json.Unmarshal(line, &ps); err != nil {
			if d.logger != nil {
				d.logger.Warn("skipping unparseable docker ps line", zap.Error(err))
			}
			continue
		}
		containers = append(containers, Container{
			ID:     ps.ID,
			Name:   ps.Names,
			Status: ps.State,
			Labels: d.overlay.Merge(ps.ID, parseLabels(ps.Labels)),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("runtime: scan docker ps output: %w", err)
	}
	return containers, nil
}

// Start starts a stopped container.
func (d *Docker) Start(ctx context.Context, id string) error {
	if _, err := d.runCmd(ctx, "start", id); err != nil {
		return fmt.Errorf("runtime: start %s: %w", id, err)
	}
	return nil
}

// Kill hard-kills a container with SIGKILL.
func (d *Docker) Kill(ctx context.Context, id string) error {
	if _, err := d.runCmd(ctx, "kill", "--signal", "KILL", id); err != nil {
		return fmt.Errorf("runtime: kill %s: %w", id, err)
	}
	return nil
}

// Restart restarts a container.
func (d *Docker) Restart(ctx context.Context, id string) error {
	if _, err := d.runCmd(ctx, "restart", id); err != nil {
		return fmt.Errorf("runtime: restart %s: %w", id, err)
	}
	return nil
}

// UpdateLabels stores label changes in the overlay.
func (d *Docker) UpdateLabels(_ context.Context, id string, labels map[string]string) error {
	return d.overlay.Update(id, labels)
}

func (d *Docker) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, d.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	return stdout.Bytes(), nil
}

// parseLabels splits docker's "k=v,k=v" label column.
func parseLabels(raw string) map[string]string {
	labels := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if key != "" {
			labels[key] = value
		}
	}
	return labels
}
