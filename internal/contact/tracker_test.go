package contact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/contact-sensor/internal/history"
)

// clock is a settable time source.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) set(sec int64) { c.t = time.Unix(sec, 0) }

// failingStore rejects every append.
type failingStore struct {
	*history.MemoryStore
	err error
}

func (f *failingStore) Append(context.Context, history.Event) error { return f.err }

func newTracker(t *testing.T) (*Tracker, *clock) {
	t.Helper()
	clk := &clock{}
	return New(history.NewMemoryStore(), WithClock(clk.now)), clk
}

// feed notifies the tracker with (time, open) pairs.
func feed(t *testing.T, tr *Tracker, clk *clock, steps ...any) {
	t.Helper()
	for i := 0; i+1 < len(steps); i += 2 {
		clk.set(int64(steps[i].(int)))
		if err := tr.NotifyStateChange(context.Background(), steps[i+1].(bool)); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
}

func TestEmptyTrackerDefaults(t *testing.T) {
	tr, clk := newTracker(t)
	clk.set(1000)

	if tr.State() != history.StatusUnknown {
		t.Errorf("State: got %v, want UNKNOWN", tr.State())
	}
	want := history.Summary{}
	if got := tr.Metrics(); got != want {
		t.Errorf("Metrics: got %+v, want zero", got)
	}
	if tr.TimesOpened() != 0 || tr.OpenDuration() != 0 || tr.ClosedDuration() != 0 || tr.LastActivation() != 0 {
		t.Error("expected all getters to return 0 on empty history")
	}
}

func TestSingleOpenEvent(t *testing.T) {
	tr, clk := newTracker(t)
	feed(t, tr, clk, 100, true)

	if got := tr.TimesOpened(); got != 1 {
		t.Errorf("TimesOpened: got %d, want 1", got)
	}
	if tr.State() != history.StatusOpen {
		t.Errorf("State: got %v, want OPEN", tr.State())
	}
	h := tr.History()
	if len(h) != 1 || h[0].Time != 100 || h[0].Status != history.StatusOpen {
		t.Errorf("History: got %+v", h)
	}
}

func TestAlternatingSequence(t *testing.T) {
	tr, clk := newTracker(t)
	feed(t, tr, clk, 10, false, 20, true, 30, false, 40, true)

	if got := tr.TimesOpened(); got != 3 {
		t.Errorf("TimesOpened: got %d, want 3", got)
	}
}

func TestDurations(t *testing.T) {
	tr, clk := newTracker(t)
	feed(t, tr, clk, 10, true, 30, false, 50, true, 70, false)

	if got := tr.OpenDuration(); got != 40 {
		t.Errorf("OpenDuration: got %d, want 40", got)
	}
	if got := tr.ClosedDuration(); got != 20 {
		t.Errorf("ClosedDuration: got %d, want 20", got)
	}
}

func TestLastActivationClosed(t *testing.T) {
	tr, clk := newTracker(t)
	feed(t, tr, clk, 10, true, 30, false, 40, false, 50, false)
	clk.set(5000)

	if got := tr.LastActivation(); got != 20 {
		t.Errorf("LastActivation: got %d, want 20", got)
	}
}

func TestLastActivationOpen(t *testing.T) {
	tr, clk := newTracker(t)
	feed(t, tr, clk, 10, true)
	clk.set(1000)

	if got := tr.LastActivation(); got != 990 {
		t.Errorf("LastActivation: got %d, want 990", got)
	}
}

func TestRepeatedNotificationsAreRecorded(t *testing.T) {
	tr, clk := newTracker(t)
	feed(t, tr, clk, 10, true, 20, true, 30, true)

	if got := len(tr.History()); got != 3 {
		t.Errorf("History length: got %d, want 3", got)
	}
	if got := tr.TimesOpened(); got != 1 {
		t.Errorf("TimesOpened: got %d, want 1", got)
	}
}

func TestTimeTruncatedToSeconds(t *testing.T) {
	tr, clk := newTracker(t)
	clk.t = time.Unix(100, 999_000_000)
	tr.NotifyStateChange(context.Background(), true)

	if got := tr.History()[0].Time; got != 100 {
		t.Errorf("Time: got %d, want 100", got)
	}
}

func TestMetricsIdempotent(t *testing.T) {
	tr, clk := newTracker(t)
	feed(t, tr, clk, 10, false, 20, true, 30, false)
	clk.set(100)

	first := tr.Metrics()
	second := tr.Metrics()
	if first != second {
		t.Errorf("Metrics changed between calls: %+v then %+v", first, second)
	}
	if first.TimesOpened != tr.TimesOpened() || first.LastActivation != tr.LastActivation() {
		t.Errorf("Metrics disagrees with getters: %+v", first)
	}
}

func TestStateRestoredFromStore(t *testing.T) {
	store := history.NewMemoryStore()
	ctx := context.Background()
	store.Append(ctx, history.Event{Time: 10, Status: history.StatusOpen})
	store.Append(ctx, history.Event{Time: 20, Status: history.StatusUnknown})

	tr := New(store)
	if tr.State() != history.StatusOpen {
		t.Errorf("State: got %v, want OPEN", tr.State())
	}
}

func TestStoreFailureStillUpdatesState(t *testing.T) {
	boom := errors.New("disk full")
	tr := New(&failingStore{MemoryStore: history.NewMemoryStore(), err: boom})

	err := tr.NotifyStateChange(context.Background(), true)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if tr.State() != history.StatusOpen {
		t.Errorf("State: got %v, want OPEN", tr.State())
	}
}

func TestCharacteristicsOrder(t *testing.T) {
	vals := Characteristics(history.Summary{TimesOpened: 1, OpenDuration: 2, ClosedDuration: 3, LastActivation: 4})
	if len(vals) != 4 {
		t.Fatalf("expected 4 characteristics, got %d", len(vals))
	}
	for i, want := range []string{"Times Opened", "Open Duration", "Closed Duration", "Last Activation"} {
		if vals[i].Name != want {
			t.Errorf("characteristic %d: got %q, want %q", i, vals[i].Name, want)
		}
		if vals[i].Value != int64(i+1) {
			t.Errorf("characteristic %d: got value %d, want %d", i, vals[i].Value, i+1)
		}
	}
}

func TestSerialNumberStable(t *testing.T) {
	a := SerialNumber("Front Door", "1/1/1")
	b := SerialNumber("Front Door", "1/1/1")
	c := SerialNumber("Back Door", "1/1/1")
	if a != b {
		t.Errorf("serial not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different names produced the same serial")
	}
}
