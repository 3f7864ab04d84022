// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeClockAfterFiresOnAdvance(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	ch := c.After(5 * time.Second)

	select {
	case <-ch:
		t.Fatal("fired before Advance")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("did not fire after Advance")
	}
}

func TestFakeClockOrdersCallbacksByDeadline(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	var order []int

	c.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	c.AfterFunc(1*time.Second, func() { order = append(order, 1) })

	c.Advance(3 * time.Second)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("got order %v, want [1 2]", order)
	}
}

func TestFakeClockTickerReschedules(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	c.Advance(3 * time.Second)

	count := 0
drain:
	for {
		select {
		case <-ticker.C:
			count++
		default:
			break drain
		}
	}
	if count == 0 {
		t.Fatal("ticker never fired")
	}
}

func TestFakeClockTimerStopPreventsFire(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop returned false for an active timer")
	}
	c.Advance(time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
}
