package control

import (
	"sync"
	"testing"
)

func TestKillSwitchDefaults(t *testing.T) {
	if NewKillSwitch(false).Enabled() {
		t.Fatalf("expected disabled by default")
	}
	if !NewKillSwitch(true).Enabled() {
		t.Fatalf("expected enabled when constructed on")
	}
}

func TestKillSwitchToggle(t *testing.T) {
	ks := NewKillSwitch(false)
	ks.Enable()
	if !ks.Enabled() {
		t.Fatalf("enable failed")
	}
	ks.Disable()
	if ks.Enabled() {
		t.Fatalf("disable failed")
	}
	ks.Set(true)
	if !ks.Enabled() {
		t.Fatalf("set(true) failed")
	}
}

func TestKillSwitchConcurrentToggle(t *testing.T) {
	ks := NewKillSwitch(false)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				ks.Set(on)
				ks.Enabled()
			}
		}(i%2 == 0)
	}
	wg.Wait()
}
