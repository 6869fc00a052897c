package sim

import (
	"testing"
	"time"
)

func TestClockNowMillisAdvances(t *testing.T) {
	c := NewClock()
	first := c.NowMillis()
	time.Sleep(5 * time.Millisecond)
	second := c.NowMillis()
	if second < first {
		t.Fatalf("NowMillis went backwards: %d then %d", first, second)
	}
	if second-first == 0 {
		t.Fatalf("NowMillis did not advance after a 5ms sleep")
	}
}
