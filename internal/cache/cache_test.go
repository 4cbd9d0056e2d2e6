package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 2, c.CleanExpired())
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestLRUPurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	assert.Equal(t, 1, c.Size())
	c.Purge()
	assert.Zero(t, c.Size())
	c.Set("c", 3)
	assert.Equal(t, 1, c.Size())
}

func TestLoadingCollapsesConcurrentMisses(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Minute))
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.GetOrLoad("2024-03", func() (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	v, err := l.GetOrLoad("2024-03", func() (int, error) { return 0, errors.New("should be cached") })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestLoadingErrorsAreNotCached(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Minute))
	_, err := l.GetOrLoad("k", func() (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)
	assert.Zero(t, l.Size())
}

func TestLoadingInvalidateDropsInFlightResult(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Minute))
	v, err := l.GetOrLoad("k", func() (int, error) {
		l.Invalidate()
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Zero(t, l.Size(), "a load that raced an invalidation is not stored")
}

func TestLoadingInvalidateDuringLoad(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})
	stale := make(chan int, 1)

	go func() {
		v, _ := l.GetOrLoad("k", func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		stale <- v
	}()
	<-started
	l.Invalidate()

	// A caller arriving after the invalidation runs its own load.
	v, err := l.GetOrLoad("k", func() (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	close(release)
	assert.Equal(t, 1, <-stale)

	v, err = l.GetOrLoad("k", func() (int, error) { return 0, errors.New("should be cached") })
	require.NoError(t, err)
	assert.Equal(t, 2, v, "the pre-invalidation result must not overwrite the fresh one")
}

func TestManagerRestart(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](10, time.Minute))
	for i := 0; i < 3; i++ {
		m.StartCleanup(time.Millisecond)
		m.Stop()
	}
}

func TestManagerCleanNow(t *testing.T) {
	c := NewLRUCache[int](10, -time.Second)
	c.Set("a", 1)
	m := NewManager()
	m.Register(c)
	assert.Equal(t, 1, m.CleanNow())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
