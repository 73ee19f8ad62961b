package timer

import (
	"testing"
	"time"

	"corestream/clock"
)

func TestStartFiresAtInterval(t *testing.T) {
	c := NewController()
	defer c.Close()

	clk := clock.New("master")
	if err := c.Start("tick1", 20*time.Millisecond, clk); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case due := <-c.Ticks():
		if due.ID != "tick1" {
			t.Fatalf("fired id = %q, want tick1", due.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestStartDuplicateIDRejected(t *testing.T) {
	c := NewController()
	defer c.Close()

	clk := clock.New("master")
	if err := c.Start("t1", time.Second, clk); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start("t1", time.Second, clk); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestAdvanceReschedules(t *testing.T) {
	c := NewController()
	defer c.Close()

	clk := clock.New("master")
	if err := c.Start("t1", 15*time.Millisecond, clk); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case due := <-c.Ticks():
			if due.ID != "t1" {
				t.Fatalf("fired id = %q", due.ID)
			}
			c.Advance("t1")
		case <-time.After(time.Second):
			t.Fatalf("tick %d never fired", i)
		}
	}
}

func TestClockRatioSpeedsUpTicks(t *testing.T) {
	c := NewController()
	defer c.Close()

	clk := clock.New("master")
	if err := c.Start("slow", time.Hour, clk); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Scaling the ratio way up should make an hour-long interval fire almost
	// immediately: next_tick = now + interval/ratio.
	clk.SetRatio(1_000_000)

	select {
	case due := <-c.Ticks():
		if due.ID != "slow" {
			t.Fatalf("fired id = %q", due.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("ratio update did not speed up the timer")
	}
}

func TestStopUnknownID(t *testing.T) {
	c := NewController()
	defer c.Close()

	if err := c.Stop("missing"); err == nil {
		t.Fatal("expected error stopping unknown timer")
	}
}

func TestStopUnsubscribesLastUserOfClock(t *testing.T) {
	c := NewController()
	defer c.Close()

	clk := clock.New("master")
	if err := c.Start("a", time.Hour, clk); err != nil {
		t.Fatalf("Start a: %v", err)
	}
	if err := c.Start("b", time.Hour, clk); err != nil {
		t.Fatalf("Start b: %v", err)
	}
	if err := c.Stop("a"); err != nil {
		t.Fatalf("Stop a: %v", err)
	}
	if len(c.clockSub) != 1 {
		t.Fatalf("expected clock subscription to remain while b is active, got %d", len(c.clockSub))
	}
	if err := c.Stop("b"); err != nil {
		t.Fatalf("Stop b: %v", err)
	}
	if len(c.clockSub) != 0 {
		t.Fatalf("expected clock subscription released after last timer stopped, got %d", len(c.clockSub))
	}
}
