package transport

import (
	"testing"
	"time"
)

func TestReconnectDelaySequence(t *testing.T) {
	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
	}
	for attempt, expected := range want {
		if got := ReconnectDelay(attempt); got != expected {
			t.Errorf("attempt %d: expected %v, got %v", attempt, expected, got)
		}
	}
}

func TestReconnectDelayIsCapped(t *testing.T) {
	for _, attempt := range []int{5, 6, 10, 40} {
		if got := ReconnectDelay(attempt); got != maxReconnectDelay {
			t.Errorf("attempt %d: expected cap %v, got %v", attempt, maxReconnectDelay, got)
		}
	}
}
