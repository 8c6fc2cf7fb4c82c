package federation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type captureEmitter struct {
	mu       sync.Mutex
	messages []string
}

func (c *captureEmitter) Emit(_ context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return nil
}

func (c *captureEmitter) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}

func TestRecordHeartbeatUpserts(t *testing.T) {
	reg := NewRegistry(nil)
	base := time.Unix(1_700_000_000, 0)
	reg.now = func() time.Time { return base }

	reg.RecordHeartbeat(context.Background(), "node-a", 100, "sig-1")
	reg.RecordHeartbeat(context.Background(), "node-a", 200, "sig-2")

	active := reg.ActivePeers(base)
	if len(active) != 1 {
		t.Fatalf("expected 1 peer, got %d", len(active))
	}
	if active[0].Record.Epoch != 200 || active[0].Record.Signature != "sig-2" {
		t.Fatalf("heartbeat did not overwrite record: %+v", active[0].Record)
	}
	if active[0].Record.Status != StatusAlive {
		t.Fatalf("expected alive status, got %q", active[0].Record.Status)
	}
}

func TestRecordHeartbeatAcceptsEpochRegression(t *testing.T) {
	reg := NewRegistry(nil)
	now := time.Now()
	reg.now = func() time.Time { return now }

	reg.RecordHeartbeat(context.Background(), "node-a", 500, "s1")
	reg.RecordHeartbeat(context.Background(), "node-a", 100, "s2")

	active := reg.ActivePeers(now)
	if active[0].Record.Epoch != 100 {
		t.Fatalf("regressed epoch should be accepted, got %d", active[0].Record.Epoch)
	}
}

func TestActivePeersExcludesStale(t *testing.T) {
	reg := NewRegistry(nil)
	base := time.Unix(1_700_000_000, 0)

	reg.now = func() time.Time { return base.Add(-301 * time.Second) }
	reg.RecordHeartbeat(context.Background(), "z", 999, "old")

	reg.now = func() time.Time { return base.Add(-10 * time.Second) }
	reg.RecordHeartbeat(context.Background(), "a", 1, "fresh")

	active := reg.ActivePeers(base)
	if len(active) != 1 || active[0].ID != "a" {
		t.Fatalf("stale peer not excluded: %+v", active)
	}
	if ElectLeader(active) != "a" {
		t.Fatalf("stale peer with high epoch must not win the election")
	}
	if reg.Len() != 2 {
		t.Fatalf("stale peer must stay in the registry, len=%d", reg.Len())
	}
}

func TestActivePeersBoundary(t *testing.T) {
	reg := NewRegistry(nil)
	base := time.Unix(1_700_000_000, 0)

	reg.now = func() time.Time { return base.Add(-StaleAfter) }
	reg.RecordHeartbeat(context.Background(), "edge", 1, "s")

	if got := reg.ActivePeers(base); len(got) != 0 {
		t.Fatalf("peer exactly at the staleness window must be excluded, got %+v", got)
	}
}

func TestRecordHeartbeatEmitsEvent(t *testing.T) {
	emitter := &captureEmitter{}
	reg := NewRegistry(emitter)

	reg.RecordHeartbeat(context.Background(), "node-b", 42, "sig")

	msgs := emitter.all()
	if len(msgs) != 1 {
		t.Fatalf("expected one event, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0], "node-b") || !strings.Contains(msgs[0], "42") {
		t.Fatalf("event missing peer or epoch: %q", msgs[0])
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.RecordHeartbeat(context.Background(), "peer", int64(j), "s")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.ActivePeers(time.Now())
			}
		}()
	}
	wg.Wait()
}
