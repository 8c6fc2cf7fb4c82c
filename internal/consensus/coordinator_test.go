package consensus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/federation"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/forge"
	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/seal"
)

type fakeAuthority struct {
	consensusCalls []consensusCall
	feedbackCalls  int
	consensusErr   error
	feedbackErr    error

	designation forge.Designation
	leaderErr   error
	leaderPolls int
}

type consensusCall struct {
	epoch  int64
	leader string
	peers  []string
	sig    string
}

func (f *fakeAuthority) PublishConsensus(_ context.Context, epoch int64, leader string, peers []string, sig string) error {
	f.consensusCalls = append(f.consensusCalls, consensusCall{epoch: epoch, leader: leader, peers: peers, sig: sig})
	return f.consensusErr
}

func (f *fakeAuthority) LedgerFeedback(context.Context, int64, string, []string, string) error {
	f.feedbackCalls++
	return f.feedbackErr
}

func (f *fakeAuthority) CurrentLeader(context.Context) (forge.Designation, error) {
	f.leaderPolls++
	return f.designation, f.leaderErr
}

func newTestCoordinator(authority Authority, registry *federation.Registry, role *federation.Role) *Coordinator {
	return New(authority, registry, role, "seal", time.Minute, nil, nil, nil)
}

func TestBroadcastReportsElectedLeader(t *testing.T) {
	authority := &fakeAuthority{}
	registry := federation.NewRegistry(nil)
	registry.RecordHeartbeat(context.Background(), "node-b", 100, "s")
	registry.RecordHeartbeat(context.Background(), "node-a", 200, "s")
	role := federation.NewRole("self", federation.Hooks{})

	c := newTestCoordinator(authority, registry, role)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.broadcastOnce(context.Background())

	if len(authority.consensusCalls) != 1 {
		t.Fatalf("expected one consensus POST, got %d", len(authority.consensusCalls))
	}
	call := authority.consensusCalls[0]
	if call.leader != "node-a" {
		t.Fatalf("expected node-a elected, got %q", call.leader)
	}
	if call.epoch != now.Unix() {
		t.Fatalf("epoch mismatch: %d", call.epoch)
	}
	if len(call.peers) != 2 {
		t.Fatalf("expected both peers reported, got %v", call.peers)
	}
	if want := seal.Sign("node-a", now.Unix(), "seal"); call.sig != want {
		t.Fatalf("signature over leader mismatch: got %q want %q", call.sig, want)
	}
	if authority.feedbackCalls != 1 {
		t.Fatalf("expected ledger feedback after success, got %d", authority.feedbackCalls)
	}
}

func TestBroadcastSignsNoneWhenNoPeers(t *testing.T) {
	authority := &fakeAuthority{}
	registry := federation.NewRegistry(nil)
	role := federation.NewRole("self", federation.Hooks{})

	c := newTestCoordinator(authority, registry, role)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.broadcastOnce(context.Background())

	call := authority.consensusCalls[0]
	if call.leader != "" {
		t.Fatalf("expected empty leader, got %q", call.leader)
	}
	if want := seal.Sign("none", now.Unix(), "seal"); call.sig != want {
		t.Fatalf("empty leader must be signed as %q", "none")
	}
}

func TestBroadcastSkipsFeedbackOnConsensusFailure(t *testing.T) {
	authority := &fakeAuthority{consensusErr: errors.New("boom")}
	registry := federation.NewRegistry(nil)
	role := federation.NewRole("self", federation.Hooks{})

	c := newTestCoordinator(authority, registry, role)
	c.broadcastOnce(context.Background())

	if authority.feedbackCalls != 0 {
		t.Fatalf("feedback must not fire when the consensus POST failed")
	}
}

func TestBroadcastSwallowsFeedbackFailure(t *testing.T) {
	authority := &fakeAuthority{feedbackErr: errors.New("ledger down")}
	registry := federation.NewRegistry(nil)
	role := federation.NewRole("self", federation.Hooks{})

	c := newTestCoordinator(authority, registry, role)
	c.broadcastOnce(context.Background())
	c.broadcastOnce(context.Background())

	// Feedback failure must not stop subsequent rounds.
	if len(authority.consensusCalls) != 2 || authority.feedbackCalls != 2 {
		t.Fatalf("feedback failure leaked into the broadcast path: %d/%d", len(authority.consensusCalls), authority.feedbackCalls)
	}
}

func TestPollAppliesLeaderChange(t *testing.T) {
	authority := &fakeAuthority{designation: forge.Designation{Leader: "self", Lease: "lease-1"}}
	registry := federation.NewRegistry(nil)

	promoted := 0
	role := federation.NewRole("self", federation.Hooks{
		OnPromote: func(context.Context) { promoted++ },
	})

	c := newTestCoordinator(authority, registry, role)
	c.pollOnce(context.Background())

	if !role.AmLeader() {
		t.Fatalf("role not applied from poll response")
	}
	if role.LeaseToken() != "lease-1" {
		t.Fatalf("lease not applied: %q", role.LeaseToken())
	}
	if promoted != 1 {
		t.Fatalf("promotion hook not fired")
	}

	// Re-confirmation is a no-op.
	c.pollOnce(context.Background())
	if promoted != 1 {
		t.Fatalf("re-confirmation fired promotion again")
	}
}

func TestPollFailureKeepsPreviousLeader(t *testing.T) {
	authority := &fakeAuthority{designation: forge.Designation{Leader: "self"}}
	registry := federation.NewRegistry(nil)
	role := federation.NewRole("self", federation.Hooks{})

	c := newTestCoordinator(authority, registry, role)
	c.pollOnce(context.Background())
	if !role.AmLeader() {
		t.Fatalf("setup failed")
	}

	authority.leaderErr = errors.New("forge unreachable")
	c.pollOnce(context.Background())

	if !role.AmLeader() {
		t.Fatalf("poll failure must not change the current designation")
	}
}
