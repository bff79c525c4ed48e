package logic

import (
	"testing"
	"time"

	"github.com/sweeney/contact-sensor/internal/history"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestNewDetector(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if d.debounceDuration != 250*time.Millisecond {
		t.Errorf("expected debounce duration 250ms, got %v", d.debounceDuration)
	}
	if d.IsBaselined() {
		t.Error("new detector should not be baselined")
	}
	if !d.startTime.Equal(t0) {
		t.Errorf("expected startTime %v, got %v", t0, d.startTime)
	}
	if !d.lastHeartbeat.Equal(t0) {
		t.Errorf("expected lastHeartbeat %v, got %v", t0, d.lastHeartbeat)
	}
}

func TestBaselineEstablishment(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)

	if e := d.Process(Input{Open: true, Time: t0}); e != nil {
		t.Errorf("expected no event during baseline, got %+v", e)
	}
	if d.IsBaselined() {
		t.Error("should not be baselined after first sample")
	}

	if e := d.Process(Input{Open: true, Time: t0.Add(200 * time.Millisecond)}); e != nil {
		t.Errorf("expected no event during baseline, got %+v", e)
	}
	if d.IsBaselined() {
		t.Error("should not be baselined before debounce period")
	}

	if e := d.Process(Input{Open: true, Time: t0.Add(250 * time.Millisecond)}); e != nil {
		t.Errorf("expected no event at baseline establishment, got %+v", e)
	}
	if !d.IsBaselined() {
		t.Error("should be baselined after debounce period")
	}
	if d.CurrentState() != history.StatusOpen {
		t.Errorf("expected OPEN, got %s", d.CurrentState())
	}
}

func TestBaselineResetOnChange(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)

	d.Process(Input{Open: true, Time: t0})
	d.Process(Input{Open: false, Time: t0.Add(100 * time.Millisecond)})

	// Full debounce from the original sample, but the timer was reset
	d.Process(Input{Open: false, Time: t0.Add(250 * time.Millisecond)})
	if d.IsBaselined() {
		t.Error("should not be baselined: state changed during baseline")
	}

	d.Process(Input{Open: false, Time: t0.Add(350 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Error("should be baselined after debounce from state change")
	}
	if d.CurrentState() != history.StatusClosed {
		t.Errorf("expected CLOSED, got %s", d.CurrentState())
	}
}

func TestCurrentStateBeforeBaseline(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)
	d.Process(Input{Open: true, Time: t0})

	if d.CurrentState() != history.StatusUnknown {
		t.Errorf("expected UNKNOWN before baseline, got %s", d.CurrentState())
	}
}

func TestNoEventsForStableState(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Minute)

	for i := 0; i < 10; i++ {
		if e := d.Process(Input{Open: false, Time: now.Add(time.Duration(i) * 100 * time.Millisecond)}); e != nil {
			t.Errorf("iteration %d: expected no event for stable state, got %+v", i, e)
		}
	}
}

func TestSingleTransitionOpen(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Minute)

	if e := d.Process(Input{Open: true, Time: now}); e != nil {
		t.Errorf("expected no event before debounce, got %+v", e)
	}
	if e := d.Process(Input{Open: true, Time: now.Add(200 * time.Millisecond)}); e != nil {
		t.Errorf("expected no event before debounce, got %+v", e)
	}

	e := d.Process(Input{Open: true, Time: now.Add(250 * time.Millisecond)})
	if e == nil {
		t.Fatal("expected event after debounce")
	}
	if e.Type != EventOpened {
		t.Errorf("expected OPENED, got %s", e.Type)
	}
	if e.State != history.StatusOpen {
		t.Errorf("expected state OPEN, got %s", e.State)
	}
	if !e.Timestamp.Equal(now.Add(250 * time.Millisecond)) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}
}

func TestSingleTransitionClose(t *testing.T) {
	d := setupBaselinedDetector(t, true)
	now := t0.Add(time.Minute)

	d.Process(Input{Open: false, Time: now})
	e := d.Process(Input{Open: false, Time: now.Add(300 * time.Millisecond)})
	if e == nil {
		t.Fatal("expected event after debounce")
	}
	if e.Type != EventClosed || e.State != history.StatusClosed {
		t.Errorf("expected CLOSED/CLOSED, got %s/%s", e.Type, e.State)
	}
}

func TestBounceShorterThanDebounce(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Minute)

	d.Process(Input{Open: true, Time: now})
	d.Process(Input{Open: true, Time: now.Add(100 * time.Millisecond)})
	// Bounces back before debounce completes
	d.Process(Input{Open: false, Time: now.Add(200 * time.Millisecond)})

	if e := d.Process(Input{Open: true, Time: now.Add(300 * time.Millisecond)}); e != nil {
		t.Errorf("bounce should have restarted the timer, got %+v", e)
	}
	if d.CurrentState() != history.StatusClosed {
		t.Errorf("expected CLOSED, got %s", d.CurrentState())
	}
}

func TestBackToBackTransitions(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Minute)

	d.Process(Input{Open: true, Time: now})
	if e := d.Process(Input{Open: true, Time: now.Add(250 * time.Millisecond)}); e == nil || e.Type != EventOpened {
		t.Fatalf("expected OPENED, got %+v", e)
	}

	d.Process(Input{Open: false, Time: now.Add(300 * time.Millisecond)})
	if e := d.Process(Input{Open: false, Time: now.Add(550 * time.Millisecond)}); e == nil || e.Type != EventClosed {
		t.Fatalf("expected CLOSED, got %+v", e)
	}
}

func TestDebounceExactTiming(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Minute)

	d.Process(Input{Open: true, Time: now})
	if e := d.Process(Input{Open: true, Time: now.Add(249 * time.Millisecond)}); e != nil {
		t.Error("expected no event 1ms before debounce")
	}
	if e := d.Process(Input{Open: true, Time: now.Add(250 * time.Millisecond)}); e == nil {
		t.Error("expected event exactly at debounce")
	}
}

func TestEventCountsIncrementOnTransition(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Minute)

	for i := 0; i < 3; i++ {
		base := now.Add(time.Duration(i) * time.Second)
		d.Process(Input{Open: true, Time: base})
		d.Process(Input{Open: true, Time: base.Add(250 * time.Millisecond)})
		d.Process(Input{Open: false, Time: base.Add(500 * time.Millisecond)})
		d.Process(Input{Open: false, Time: base.Add(750 * time.Millisecond)})
	}

	counts := d.EventCountsSnapshot()
	if counts.Opened != 3 {
		t.Errorf("Opened: got %d, want 3", counts.Opened)
	}
	if counts.Closed != 3 {
		t.Errorf("Closed: got %d, want 3", counts.Closed)
	}
}

func TestCheckHeartbeatDisabledWithZeroInterval(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	if hb := d.CheckHeartbeat(t0.Add(time.Hour), 0); hb != nil {
		t.Error("expected nil heartbeat when disabled")
	}
}

func TestCheckHeartbeatBeforeBaseline(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)
	if hb := d.CheckHeartbeat(t0.Add(time.Hour), time.Minute); hb != nil {
		t.Error("expected nil heartbeat before baseline")
	}
}

func TestCheckHeartbeatAtInterval(t *testing.T) {
	d := setupBaselinedDetector(t, false)

	if hb := d.CheckHeartbeat(t0.Add(14*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected nil heartbeat before interval")
	}

	hb := d.CheckHeartbeat(t0.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", hb.Uptime)
	}

	if hb := d.CheckHeartbeat(t0.Add(16*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected nil heartbeat right after previous one")
	}
	if hb := d.CheckHeartbeat(t0.Add(30*time.Minute), 15*time.Minute); hb == nil {
		t.Error("expected second heartbeat")
	}
}

func setupBaselinedDetector(t *testing.T, open bool) *Detector {
	t.Helper()
	d := NewDetector(250*time.Millisecond, t0)
	d.Process(Input{Open: open, Time: t0})
	d.Process(Input{Open: open, Time: t0.Add(250 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Fatal("failed to establish baseline")
	}
	return d
}

func TestApplyBaselinesOnFirstReading(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)

	if e := d.Apply(Input{Open: true, Time: t0}); e != nil {
		t.Errorf("expected no event at baseline, got %+v", e)
	}
	if !d.IsBaselined() {
		t.Error("should be baselined after the first reading")
	}
	if d.CurrentState() != history.StatusOpen {
		t.Errorf("expected OPEN, got %s", d.CurrentState())
	}
}

func TestApplySkipsDebounce(t *testing.T) {
	d := NewDetector(time.Hour, t0)
	d.Apply(Input{Open: false, Time: t0})

	e := d.Apply(Input{Open: true, Time: t0.Add(time.Millisecond)})
	if e == nil {
		t.Fatal("expected event without waiting for debounce")
	}
	if e.Type != EventOpened || e.State != history.StatusOpen {
		t.Errorf("unexpected event: %+v", e)
	}

	if e := d.Apply(Input{Open: true, Time: t0.Add(2 * time.Millisecond)}); e != nil {
		t.Errorf("expected no event for repeated state, got %+v", e)
	}

	if e := d.Apply(Input{Open: false, Time: t0.Add(3 * time.Millisecond)}); e == nil || e.Type != EventClosed {
		t.Errorf("expected CLOSED event, got %+v", e)
	}

	counts := d.EventCountsSnapshot()
	if counts.Opened != 1 || counts.Closed != 1 {
		t.Errorf("counts: got %+v, want 1/1", counts)
	}
}
