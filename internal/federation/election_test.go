package federation

import (
	"testing"
	"time"
)

func peer(id string, epoch int64) Peer {
	return Peer{ID: id, Record: PeerRecord{Epoch: epoch, Status: StatusAlive, LastSeen: time.Now()}}
}

func TestElectLeaderEmpty(t *testing.T) {
	if got := ElectLeader(nil); got != "" {
		t.Fatalf("expected no leader for empty set, got %q", got)
	}
}

func TestElectLeaderHighestEpochWins(t *testing.T) {
	peers := []Peer{peer("node-001", 1000), peer("node-002", 3000), peer("node-003", 2000)}
	if got := ElectLeader(peers); got != "node-002" {
		t.Fatalf("expected node-002, got %q", got)
	}
}

func TestElectLeaderTieBreaksAlphabetically(t *testing.T) {
	peers := []Peer{peer("zebra-node", 5000), peer("alpha-node", 5000), peer("beta-node", 5000)}
	if got := ElectLeader(peers); got != "alpha-node" {
		t.Fatalf("expected alpha-node on tie, got %q", got)
	}
}

func TestElectLeaderMixedTie(t *testing.T) {
	peers := []Peer{peer("b", 100), peer("a", 100), peer("c", 99)}
	if got := ElectLeader(peers); got != "a" {
		t.Fatalf("expected a, got %q", got)
	}
}

func TestElectLeaderDeterministic(t *testing.T) {
	peers := []Peer{peer("n2", 7), peer("n1", 7), peer("n3", 9)}
	first := ElectLeader(peers)
	for i := 0; i < 50; i++ {
		if got := ElectLeader(peers); got != first {
			t.Fatalf("election not deterministic: %q then %q", first, got)
		}
	}
}

func TestElectLeaderDoesNotMutateInput(t *testing.T) {
	peers := []Peer{peer("z", 1), peer("a", 2)}
	ElectLeader(peers)
	if peers[0].ID != "z" || peers[1].ID != "a" {
		t.Fatalf("input slice reordered: %v", peers)
	}
}
