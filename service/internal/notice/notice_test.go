package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/acesup/service/internal/schedule"
)

type change struct {
	text    string
	visible bool
}

func newTestNotice() (*Scheduler, *schedule.Manual, *[]change) {
	clock := schedule.NewManual(time.Unix(0, 0))
	n := New(clock, 0)
	var got []change
	n.Subscribe(func(text string, visible bool) { got = append(got, change{text, visible}) })
	return n, clock, &got
}

func TestShowThenExpire(t *testing.T) {
	n, clock, got := newTestNotice()
	n.Show("This card cannot be discarded.")

	text, ok := n.Current()
	assert.True(t, ok)
	assert.Equal(t, "This card cannot be discarded.", text)

	clock.Advance(DefaultTTL - time.Millisecond)
	_, ok = n.Current()
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = n.Current()
	assert.False(t, ok)
	assert.Equal(t, []change{{"This card cannot be discarded.", true}, {"", false}}, *got)
}

// TestShowReplaces verifies a second notice cancels the first timer outright.
func TestShowReplaces(t *testing.T) {
	n, clock, got := newTestNotice()
	n.Show("A")
	clock.Advance(time.Second)
	n.Show("B")

	assert.Equal(t, 1, clock.Pending())
	text, _ := n.Current()
	assert.Equal(t, "B", text)

	// A's original expiry passes without clearing B.
	clock.Advance(time.Second)
	text, ok := n.Current()
	assert.True(t, ok)
	assert.Equal(t, "B", text)

	clock.Advance(time.Second)
	_, ok = n.Current()
	assert.False(t, ok)
	require.Len(t, *got, 3)
	assert.Equal(t, change{"", false}, (*got)[2])
}

func TestDismiss(t *testing.T) {
	n, clock, got := newTestNotice()
	n.Dismiss()
	assert.Empty(t, *got)

	n.Show("A")
	n.Dismiss()
	assert.Equal(t, 0, clock.Pending())
	assert.False(t, n.Pending())
	clock.Advance(time.Minute)
	assert.Equal(t, []change{{"A", true}, {"", false}}, *got)
}

func TestCloseCancelsTimer(t *testing.T) {
	n, clock, got := newTestNotice()
	n.Show("A")
	n.Close()
	assert.Equal(t, 0, clock.Pending())
	clock.Advance(time.Minute)
	n.Show("B")
	assert.Equal(t, []change{{"A", true}}, *got)
}

func TestCustomTTL(t *testing.T) {
	clock := schedule.NewManual(time.Unix(0, 0))
	n := New(clock, 500*time.Millisecond)
	n.Show("A")
	clock.Advance(500 * time.Millisecond)
	assert.False(t, n.Pending())
}
