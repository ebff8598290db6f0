package pedal

import (
	"testing"
	"time"
)

func TestActivity(t *testing.T) {
	a := NewActivity(20*time.Second, at(0))
	if !a.Active() {
		t.Fatal("new monitor should be active")
	}
	if a.Update(at(60000)) || !a.Active() {
		t.Error("blanked while disabled")
	}

	a.SetEnabled(true, at(60000))
	if a.Deadline() != at(80000) {
		t.Errorf("deadline = %v, enabling should count as activity", a.Deadline())
	}
	if a.Update(at(80000)) {
		t.Error("blanked exactly at the deadline")
	}
	if !a.Update(at(80001)) || a.Active() {
		t.Error("expected blanking past the deadline")
	}
	if a.Update(at(90000)) {
		t.Error("a second Update should report no change")
	}

	a.Touch(at(95000))
	if !a.Active() || a.Deadline() != at(115000) {
		t.Error("touch did not reactivate")
	}

	a.Update(at(120000))
	a.SetEnabled(false, at(121000))
	if !a.Active() {
		t.Error("disabling live gig should wake the display")
	}
}
