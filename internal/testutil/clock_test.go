// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"testing"
	"time"

	"github.com/walrus-wm/walrus/internal/clock"
)

var _ clock.Clock = (*FakeClock)(nil)

func TestFakeClock_Now(t *testing.T) {
	t.Parallel()

	initial := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(initial)

	if got := c.Now(); !got.Equal(initial) {
		t.Errorf("FakeClock.Now() = %v, want %v", got, initial)
	}
}

func TestFakeClock_ZeroInitialUsesReference(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("FakeClock.Now() = %v, want %v", got, want)
	}
}

func TestFakeClock_AfterFiresOnAdvance(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	ch := c.After(5 * time.Minute)

	if !c.WaitForWaiter(time.Second) {
		t.Fatal("After() did not register a waiter")
	}

	c.Advance(4 * time.Minute)
	select {
	case <-ch:
		t.Fatal("After() fired before its deadline")
	default:
	}

	c.Advance(time.Minute)
	select {
	case <-ch:
	default:
		t.Fatal("After() did not fire at its deadline")
	}
	if n := c.Waiters(); n != 0 {
		t.Errorf("Waiters() = %d after firing, want 0", n)
	}
}

func TestFakeClock_AfterNonPositiveFiresImmediately(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
	if n := c.Waiters(); n != 0 {
		t.Errorf("Waiters() = %d, want 0", n)
	}
}

func TestFakeClock_Set(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	ch := c.After(time.Hour)
	c.Set(c.Now().Add(2 * time.Hour))

	select {
	case <-ch:
	default:
		t.Fatal("Set() past the deadline did not fire the waiter")
	}
}
