package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const overlaySnapshotVersion = 1

// LabelOverlay tracks label changes the daemon itself cannot hold, keyed by
// container ID. An empty value tombstones a daemon-side label. The overlay
// persists to disk so ownership decisions survive agent restarts; with an
// empty path it runs in-memory only.
type LabelOverlay struct {
	mu        sync.Mutex
	path      string
	overrides map[string]map[string]string
}

type overlaySnapshot struct {
	Version   int                          `json:"version"`
	UpdatedAt time.Time                    `json:"updated_at"`
	Overrides map[string]map[string]string `json:"overrides"`
}

// OpenLabelOverlay loads the overlay from path, starting empty when the file
// does not exist yet.
func OpenLabelOverlay(path string) (*LabelOverlay, error) {
	o := &LabelOverlay{
		path:      strings.TrimSpace(path),
		overrides: make(map[string]map[string]string),
	}
	if o.path == "" {
		return o, nil
	}
	data, err := os.ReadFile(o.path)
	if os.IsNotExist(err) {
		return o, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runtime: read label overlay: %w", err)
	}
	var snap overlaySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("runtime: decode label overlay: %w", err)
	}
	if snap.Overrides != nil {
		o.overrides = snap.Overrides
	}
	return o, nil
}

// Update merges label changes for one container and persists the snapshot.
func (o *LabelOverlay) Update(id string, labels map[string]string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	current := o.overrides[id]
	if current == nil {
		current = make(map[string]string)
	}
	for key, value := range labels {
		current[key] = value
	}
	if len(current) == 0 {
		delete(o.overrides, id)
	} else {
		o.overrides[id] = current
	}
	return o.persistLocked()
}

// Merge applies the overlay for id on top of the daemon-reported labels.
// Tombstoned labels (empty override value) are removed.
func (o *LabelOverlay) Merge(id string, labels map[string]string) map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()

	merged := make(map[string]string, len(labels))
	for key, value := range labels {
		merged[key] = value
	}
	for key, value := range o.overrides[id] {
		if value == "" {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}
	return merged
}

func (o *LabelOverlay) persistLocked() error {
	if o.path == "" {
		return nil
	}
	snap := overlaySnapshot{
		Version:   overlaySnapshotVersion,
		UpdatedAt: time.Now().UTC(),
		Overrides: o.overrides,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("runtime: encode label overlay: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(o.path), 0o755); err != nil {
		return fmt.Errorf("runtime: prepare overlay dir: %w", err)
	}
	tmp := o.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("runtime: write label overlay: %w", err)
	}
	if err := os.Rename(tmp, o.path); err != nil {
		return fmt.Errorf("runtime: commit label overlay: %w", err)
	}
	return nil
}
