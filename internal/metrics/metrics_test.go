package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestSanitizeName(t *testing.T) {
	if got := SanitizeName("frames.committed-total"); got != "frames_committed_total" {
		t.Fatalf("got %q", got)
	}
}

func TestIncAndSnapshot(t *testing.T) {
	r := New()
	r.Inc("messages_total:hello")
	r.Inc("messages_total:hello")
	r.Inc("messages_total:submit_frame")

	snap := r.CounterSnapshot()
	if snap["messages_total:hello"] != 2 {
		t.Fatalf("expected 2, got %d", snap["messages_total:hello"])
	}
	if snap["messages_total:submit_frame"] != 1 {
		t.Fatalf("expected 1, got %d", snap["messages_total:submit_frame"])
	}
}

func TestObserveOpDurationTracksMax(t *testing.T) {
	r := New()
	r.ObserveOpDuration("submit_frame", 10*time.Millisecond)
	r.ObserveOpDuration("submit_frame", 50*time.Millisecond)
	r.ObserveOpDuration("submit_frame", 5*time.Millisecond)

	text := r.Text(nil)
	if !strings.Contains(text, `op_duration_seconds_count{verb="submit_frame"} 3`) {
		t.Fatalf("missing count line:\n%s", text)
	}
	if !strings.Contains(text, `op_duration_seconds_max{verb="submit_frame"} 0.050000`) {
		t.Fatalf("missing max line:\n%s", text)
	}
}

func TestTextIncludesFixedGauges(t *testing.T) {
	r := New()
	text := r.Text(map[string]float64{"clients": 3, "rooms": 7})
	if !strings.Contains(text, "clients 3.000000") {
		t.Fatalf("missing clients gauge:\n%s", text)
	}
	if !strings.Contains(text, "rooms 7.000000") {
		t.Fatalf("missing rooms gauge:\n%s", text)
	}
}

func TestTextLabelsCounterKeysWithColon(t *testing.T) {
	r := New()
	r.Inc("messages_total:join_random")
	text := r.Text(nil)
	if !strings.Contains(text, `messages_total{verb="join_random"} 1`) {
		t.Fatalf("expected labeled line:\n%s", text)
	}
}
