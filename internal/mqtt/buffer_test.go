package mqtt

import (
	"testing"

	"github.com/rs/zerolog"
)

func msgs(n, offset int) []bufferedMsg {
	out := make([]bufferedMsg, n)
	for i := range out {
		out[i] = bufferedMsg{topic: "t", payload: []byte{byte(offset + i)}}
	}
	return out
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10, zerolog.Nop())
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestRingBufferDrainOrder(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
		wantLen  int
		wantHead byte
	}{
		{"partial", 10, 5, 5, 0},
		{"exactly full", 10, 10, 10, 0},
		{"overflow keeps newest", 5, 8, 5, 3},
		{"zero capacity clamps to one", 0, 3, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity, zerolog.Nop())
			for _, m := range msgs(tt.pushed, 0) {
				rb.push(m)
			}

			got := rb.drainAll()
			if len(got) != tt.wantLen {
				t.Fatalf("expected %d items, got %d", tt.wantLen, len(got))
			}
			for i, m := range got {
				want := tt.wantHead + byte(i)
				if m.payload[0] != want {
					t.Errorf("item %d: expected payload %d, got %d", i, want, m.payload[0])
				}
			}
			if rb.len() != 0 {
				t.Errorf("expected len 0 after drain, got %d", rb.len())
			}
		})
	}
}

func TestRingBufferOverflowFlagResetsOnDrain(t *testing.T) {
	rb := newRingBuffer(2, zerolog.Nop())
	for _, m := range msgs(3, 0) {
		rb.push(m)
	}
	if !rb.overflow {
		t.Error("expected overflow after pushing past capacity")
	}
	rb.drainAll()
	if rb.overflow {
		t.Error("expected overflow cleared after drain")
	}
}

func TestRingBufferMultipleCycles(t *testing.T) {
	rb := newRingBuffer(5, zerolog.Nop())

	for _, m := range msgs(3, 0) {
		rb.push(m)
	}
	if got := rb.drainAll(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	for _, m := range msgs(4, 10) {
		rb.push(m)
	}
	got := rb.drainAll()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, m := range got {
		if want := byte(10 + i); m.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, m.payload[0])
		}
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10, zerolog.Nop())
	rb.push(bufferedMsg{
		topic:    "home/contact-sensor/system",
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != "home/contact-sensor/system" {
		t.Errorf("topic: got %s", got[0].topic)
	}
	if string(got[0].payload) != `{"test":true}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 {
		t.Errorf("qos: got %d, want 1", got[0].qos)
	}
	if !got[0].retained {
		t.Error("retained: got false, want true")
	}
}
