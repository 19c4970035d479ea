package perf

import (
	"testing"
	"time"
)

func TestTrackReturnsElapsed(t *testing.T) {
	elapsed := Track("sleep", func() { time.Sleep(2 * time.Millisecond) })
	if elapsed < 2*time.Millisecond {
		t.Fatalf("expected at least 2ms, got %v", elapsed)
	}
}

func TestLogWhenDisabledIsNoop(t *testing.T) {
	if IsEnabled() {
		t.Skip("TABSPLIT_PERF is set")
	}
	Log("ignored %d", 1)
	if logFile != nil {
		t.Fatalf("log file opened while disabled")
	}
}
