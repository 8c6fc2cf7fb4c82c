package chaos

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/kswhitlock9493-jpg/SR-AIbridge--sub002/internal/runtime"
)

type fakeRuntime struct {
	running []runtime.Container
	listErr error
	killErr error
	killed  []string
}

func (f *fakeRuntime) List(context.Context, bool) ([]runtime.Container, error) {
	return f.running, f.listErr
}

func (f *fakeRuntime) Start(context.Context, string) error   { return nil }
func (f *fakeRuntime) Restart(context.Context, string) error { return nil }

func (f *fakeRuntime) Kill(_ context.Context, id string) error {
	if f.killErr != nil {
		return f.killErr
	}
	f.killed = append(f.killed, id)
	return nil
}

func (f *fakeRuntime) UpdateLabels(context.Context, string, map[string]string) error {
	return nil
}

func newTestInjector(rt runtime.Runtime, probability float64) *Injector {
	i := New(rt, nil, time.Minute, probability, nil, nil, nil)
	i.rng = rand.New(rand.NewSource(1))
	return i
}

func TestZeroProbabilityNeverKills(t *testing.T) {
	rt := &fakeRuntime{running: []runtime.Container{{ID: "c1", Status: runtime.StatusRunning}}}
	i := newTestInjector(rt, 0)

	for n := 0; n < 100; n++ {
		i.strike(context.Background())
	}
	if len(rt.killed) != 0 {
		t.Fatalf("probability 0 must never kill, got %v", rt.killed)
	}
}

func TestFullProbabilityKillsEveryCycle(t *testing.T) {
	rt := &fakeRuntime{running: []runtime.Container{
		{ID: "c1", Status: runtime.StatusRunning},
		{ID: "c2", Status: runtime.StatusRunning},
	}}
	i := newTestInjector(rt, 1)

	for n := 0; n < 10; n++ {
		i.strike(context.Background())
	}
	if len(rt.killed) != 10 {
		t.Fatalf("probability 1 must kill every cycle, got %d kills", len(rt.killed))
	}
	for _, id := range rt.killed {
		if id != "c1" && id != "c2" {
			t.Fatalf("killed unknown container %q", id)
		}
	}
}

func TestSkipsWhenNothingRunning(t *testing.T) {
	rt := &fakeRuntime{}
	i := newTestInjector(rt, 1)

	i.strike(context.Background())

	if len(rt.killed) != 0 {
		t.Fatalf("no running containers means no kill")
	}
}

func TestListFailureIsAbsorbed(t *testing.T) {
	rt := &fakeRuntime{listErr: errors.New("daemon down")}
	i := newTestInjector(rt, 1)

	i.strike(context.Background())
	i.strike(context.Background())
}

func TestKillFailureIsAbsorbed(t *testing.T) {
	rt := &fakeRuntime{
		running: []runtime.Container{{ID: "c1", Status: runtime.StatusRunning}},
		killErr: errors.New("no such container"),
	}
	i := newTestInjector(rt, 1)

	i.strike(context.Background())

	if len(rt.killed) != 0 {
		t.Fatalf("kill error must not record a kill")
	}
}
