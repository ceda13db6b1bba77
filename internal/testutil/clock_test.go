package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_StartsAtEpoch(t *testing.T) {
	assert.Equal(t, Epoch, NewFakeClock(time.Time{}).Now())

	start := time.UnixMilli(5)
	assert.Equal(t, start, NewFakeClock(start).Now())
}

func TestFakeClock_Advance(t *testing.T) {
	c := NewFakeClock(time.Time{})

	got := c.Advance(1500 * time.Millisecond)
	assert.Equal(t, Epoch.Add(1500*time.Millisecond), got)
	assert.Equal(t, got, c.Now())

	c.Set(Epoch)
	assert.Equal(t, Epoch, c.Now())
}

func TestFakeClock_ConcurrentAdvance(t *testing.T) {
	c := NewFakeClock(time.Time{})
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			c.Advance(time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(n*time.Millisecond), c.Now())
}
