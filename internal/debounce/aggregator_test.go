package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorGroupsByKey(t *testing.T) {
	var mu sync.Mutex
	flushed := map[string][]string{}
	done := make(chan struct{}, 2)

	agg := New(Options[string]{
		Delay: 20 * time.Millisecond,
		OnFlush: func(key string, items []string) {
			mu.Lock()
			flushed[key] = items
			mu.Unlock()
			done <- struct{}{}
		},
	})

	agg.Add("chat:album-1", "a")
	agg.Add("chat:album-2", "x")
	agg.Add("chat:album-1", "b")
	agg.Add("", "ignored")
	assert.Equal(t, 2, agg.Pending())

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			require.FailNow(t, "flush timed out")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, flushed["chat:album-1"])
	assert.Equal(t, []string{"x"}, flushed["chat:album-2"])
	assert.Zero(t, agg.Pending())
}
