package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newTestQueue() (*Queue[string], *testClock) {
	clock := &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewWithClock[string](clock.Now), clock
}

func TestDrainDueKeepsFutureItems(t *testing.T) {
	q, clock := newTestQueue()
	now := clock.now

	q.Enqueue(&Item[string]{ID: "1", RetryAt: now.Add(-time.Second)})
	q.Enqueue(&Item[string]{ID: "2", RetryAt: now.Add(time.Hour)})
	q.Enqueue(&Item[string]{ID: "3", RetryAt: now})

	due := q.DrainDue()
	require.Len(t, due, 2)
	assert.Equal(t, "1", due[0].ID)
	assert.Equal(t, "3", due[1].ID)
	assert.Equal(t, 1, q.Size())

	assert.Empty(t, q.DrainDue())

	clock.now = now.Add(time.Hour)
	due = q.DrainDue()
	require.Len(t, due, 1)
	assert.Equal(t, "2", due[0].ID)
	assert.Equal(t, 0, q.Size())
}

func TestDrainDueOnEmptyQueue(t *testing.T) {
	q, _ := newTestQueue()
	assert.Empty(t, q.DrainDue())
	assert.Equal(t, 0, q.Size())
}

func TestItemExhausted(t *testing.T) {
	item := &Item[string]{RetryCount: 2, MaxRetries: 3}
	assert.False(t, item.Exhausted())
	item.RetryCount++
	assert.True(t, item.Exhausted())
}
