// Package runtime abstracts the container runtime the agent supervises.
// The default backend shells out to the docker CLI, matching how the node
// hosts are provisioned; anything that can list, start, kill and relabel
// containers can stand in.
package runtime

import "context"

// OwnerLabel marks the node that currently owns a container. Promotion
// claims it, demotion and witness cleanup strip it.
const OwnerLabel = "brh.owner"

// EnvLabel scopes a container to a logical environment.
const EnvLabel = "brh.env"

// StatusRunning is the canonical running state string.
const StatusRunning = "running"

// Container is the runtime's view of one container.
type Container struct {
	ID     string
	Name   string
	Status string
	Labels map[string]string
}

// Running reports whether the container is in the running state.
func (c Container) Running() bool {
	return c.Status == StatusRunning
}

// Runtime is the container capability consumed by the watchtower, the chaos
// injector and the leadership hooks.
type Runtime interface {
	// List returns containers; when all is false only running ones.
	List(ctx context.Context, all bool) ([]Container, error)
	// Start starts a stopped container.
	Start(ctx context.Context, id string) error
	// Kill hard-kills a running container, no graceful stop.
	Kill(ctx context.Context, id string) error
	// Restart restarts a container.
	Restart(ctx context.Context, id string) error
	// UpdateLabels merges the given labels into the container's label set.
	// An empty value removes the label.
	UpdateLabels(ctx context.Context, id string, labels map[string]string) error
}

// AvailabilityChecker is implemented by backends that can probe whether the
// underlying runtime is reachable on this host.
type AvailabilityChecker interface {
	Available(ctx context.Context) error
}
