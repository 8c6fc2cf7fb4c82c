// Package federation holds the coordination state of a BRH node: the peer
// registry fed by inbound heartbeats, the advisory election over that
// registry, and the node's belief about the current leader.
package federation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/events"
)

// StaleAfter is the window after which a silent peer drops out of active
// election consideration. Records are kept in the registry; only the active
// set shrinks.
const StaleAfter = 5 * time.Minute

// PeerStatus is the reported liveness of a peer.
type PeerStatus string

// StatusAlive is set on every heartbeat receipt.
const StatusAlive PeerStatus = "alive"

// PeerRecord is the registry's view of one peer. Epoch and Signature are
// peer-supplied; LastSeen is always stamped by the receiving node's clock.
//
// The signature is stored for audit but not recomputed or verified before
// the epoch is trusted: heartbeat senders are not authenticated here. The
// trust boundary sits at the Forge, not between peers.
type PeerRecord struct {
	Epoch     int64
	Signature string
	Status    PeerStatus
	LastSeen  time.Time
}

// Peer pairs a peer ID with its record for election input.
type Peer struct {
	ID     string
	Record PeerRecord
}

// Registry is a concurrent-safe map of peers keyed by node ID. Writes arrive
// from the inbound heartbeat path; reads from the consensus broadcast loop.
type Registry struct {
	mu      sync.Mutex
	peers   map[string]PeerRecord
	emitter events.Emitter
	now     func() time.Time
}

// NewRegistry builds an empty registry. The emitter may be nil.
func NewRegistry(emitter events.Emitter) *Registry {
	return &Registry{
		peers:   make(map[string]PeerRecord),
		emitter: emitter,
		now:     time.Now,
	}
}

// RecordHeartbeat upserts the peer's record and marks it alive. Epoch
// regression is accepted as-is; the registry performs no monotonicity check,
// so a rolled-back peer clock can still influence the election tie-break.
func (r *Registry) RecordHeartbeat(ctx context.Context, peerID string, epoch int64, signature string) {
	r.mu.Lock()
	r.peers[peerID] = PeerRecord{
		Epoch:     epoch,
		Signature: signature,
		Status:    StatusAlive,
		LastSeen:  r.now(),
	}
	r.mu.Unlock()

	if r.emitter != nil {
		_ = r.emitter.Emit(ctx, fmt.Sprintf("HEARTBEAT: received from %s at epoch %d", peerID, epoch))
	}
}

// ActivePeers returns the peers seen within the staleness window, sorted by
// ID for stable iteration.
func (r *Registry) ActivePeers(now time.Time) []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]Peer, 0, len(r.peers))
	for id, rec := range r.peers {
		if now.Sub(rec.LastSeen) < StaleAfter {
			active = append(active, Peer{ID: id, Record: rec})
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active
}

// Len reports the total number of known peers, stale included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}
