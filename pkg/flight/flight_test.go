package flight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Coalesces(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := NewCache(func(k string) (string, error) {
		calls.Add(1)
		<-release
		return "value:" + k, nil
	})

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get("greeting")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, v := range results {
		assert.Equal(t, "value:greeting", v)
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	var calls int
	c := NewCache(func(k int) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("disk hiccup")
		}
		return k * 2, nil
	})

	_, err := c.Get(2)
	require.Error(t, err)

	v, err := c.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	_, _ = c.Get(2)
	assert.Equal(t, 2, calls)
}

func TestCache_Expiry(t *testing.T) {
	now := time.Unix(0, 0)
	var calls int
	c := NewCache(func(k string) (int, error) {
		calls++
		return calls, nil
	})
	c.now = func() time.Time { return now }
	c.Expiry(time.Minute)

	v, _ := c.Get("a")
	assert.Equal(t, 1, v)

	now = now.Add(30 * time.Second)
	v, _ = c.Get("a")
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)

	c.Forget("a")
	v, _ = c.Get("a")
	assert.Equal(t, 3, v)
}
