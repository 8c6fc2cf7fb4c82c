package federation

import (
	"context"
	"testing"
)

type hookCounter struct {
	order      []string
	promotions int
	demotions  int
}

func (h *hookCounter) hooks() Hooks {
	return Hooks{
		OnPromote: func(context.Context) {
			h.promotions++
			h.order = append(h.order, "promote")
		},
		OnDemote: func(context.Context) {
			h.demotions++
			h.order = append(h.order, "demote")
		},
	}
}

func TestApplyPromotionFiresOnce(t *testing.T) {
	counter := &hookCounter{}
	role := NewRole("self", counter.hooks())

	role.Apply(context.Background(), "self", "lease-1")
	role.Apply(context.Background(), "self", "lease-2")

	if counter.promotions != 1 {
		t.Fatalf("expected exactly one promotion, got %d", counter.promotions)
	}
	if counter.demotions != 0 {
		t.Fatalf("unexpected demotion")
	}
	if role.LeaseToken() != "lease-2" {
		t.Fatalf("lease token not updated on re-confirmation: %q", role.LeaseToken())
	}
}

func TestApplyPromotionThenDemotion(t *testing.T) {
	counter := &hookCounter{}
	role := NewRole("self", counter.hooks())

	role.Apply(context.Background(), "self", "l1")
	role.Apply(context.Background(), "other", "l2")

	if counter.promotions != 1 || counter.demotions != 1 {
		t.Fatalf("expected one promotion and one demotion, got %d/%d", counter.promotions, counter.demotions)
	}
	if len(counter.order) != 2 || counter.order[0] != "promote" || counter.order[1] != "demote" {
		t.Fatalf("hooks fired out of order: %v", counter.order)
	}
	if role.AmLeader() {
		t.Fatalf("node should be witness after demotion")
	}
	if role.LeaderID() != "other" {
		t.Fatalf("leader should be other, got %q", role.LeaderID())
	}
}

func TestApplyForeignLeaderChangeFiresNothing(t *testing.T) {
	counter := &hookCounter{}
	role := NewRole("self", counter.hooks())

	role.Apply(context.Background(), "node-b", "l1")
	role.Apply(context.Background(), "node-c", "l2")
	role.Apply(context.Background(), "", "")

	if counter.promotions != 0 || counter.demotions != 0 {
		t.Fatalf("foreign leader changes must not fire hooks: %d/%d", counter.promotions, counter.demotions)
	}
}

func TestApplyRePromotion(t *testing.T) {
	counter := &hookCounter{}
	role := NewRole("self", counter.hooks())

	role.Apply(context.Background(), "self", "l1")
	role.Apply(context.Background(), "other", "l2")
	role.Apply(context.Background(), "self", "l3")

	if counter.promotions != 2 || counter.demotions != 1 {
		t.Fatalf("expected 2 promotions and 1 demotion, got %d/%d", counter.promotions, counter.demotions)
	}
	if !role.AmLeader() {
		t.Fatalf("node should be leader again")
	}
	if role.LeaseToken() != "l3" {
		t.Fatalf("lease not updated: %q", role.LeaseToken())
	}
}

func TestEmptySelfIDNeverLeads(t *testing.T) {
	counter := &hookCounter{}
	role := NewRole("", counter.hooks())

	role.Apply(context.Background(), "", "lease")

	if role.AmLeader() {
		t.Fatalf("empty self ID must never count as leadership")
	}
	if counter.promotions != 0 {
		t.Fatalf("unexpected promotion for empty IDs")
	}
}

func TestNilHooksSafe(t *testing.T) {
	role := NewRole("self", Hooks{})
	role.Apply(context.Background(), "self", "l")
	role.Apply(context.Background(), "other", "l")
	if role.AmLeader() {
		t.Fatalf("expected witness state")
	}
}
