package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
}

func TestDeterministicClock_NowAdvancesMonotonically(t *testing.T) {
	clock := NewDeterministicClock()

	prev := clock.Now()
	for i := 0; i < 10; i++ {
		next := clock.Now()
		assert.True(t, next.After(prev))
		prev = next
	}
	assert.Equal(t, int64(11), clock.Ticks())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	first := clock.Now()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, first, clock.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var mu sync.Mutex
	seen := make(map[time.Time]bool)

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				now := clock.Now()
				mu.Lock()
				require.False(t, seen[now], "duplicate instant %s", now)
				seen[now] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}

func TestRunIDs(t *testing.T) {
	g := NewRunIDs()
	assert.Equal(t, "00000000-0000-4000-8000-000000000001", g.Next())
	assert.Equal(t, "00000000-0000-4000-8000-000000000002", g.Next())
}

func TestFakeTB(t *testing.T) {
	tb := NewFakeTB("TestSomething")
	assert.Equal(t, "TestSomething", tb.Name())
	assert.False(t, tb.Failed())

	tb.Logf("hello %d", 1)
	tb.Errorf("boom %s", "x")

	assert.True(t, tb.Failed())
	assert.Equal(t, []string{"boom x"}, tb.Errors())
	assert.Equal(t, []string{"hello 1"}, tb.Logs())
}

func TestWithDiffering(t *testing.T) {
	img := Solid(10, 10, White)
	out := WithDiffering(img, 12, Black)

	assert.Equal(t, White, img.NRGBAAt(0, 0), "input is not modified")
	assert.Equal(t, Black, out.NRGBAAt(9, 0))
	assert.Equal(t, Black, out.NRGBAAt(1, 1))
	assert.Equal(t, White, out.NRGBAAt(2, 1))
}

func TestFakeTB_CleanupRunsInReverse(t *testing.T) {
	tb := NewFakeTB("TestSomething")
	var order []int
	tb.Cleanup(func() { order = append(order, 1) })
	tb.Cleanup(func() { order = append(order, 2) })

	tb.Finish()
	tb.Finish()
	assert.Equal(t, []int{2, 1}, order)
}
