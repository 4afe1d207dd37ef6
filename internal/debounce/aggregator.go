package debounce

import (
	"sync"
	"time"
)

const DefaultDelay = 1200 * time.Millisecond

type Options[T any] struct {
	Delay   time.Duration
	OnFlush func(key string, items []T)
}

// Aggregator collects items arriving under the same key and flushes them
// together once no new item came in for Delay.
type Aggregator[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	onFlush func(string, []T)
	pending map[string]*batch[T]
}

type batch[T any] struct {
	items []T
	timer *time.Timer
}

func New[T any](opts Options[T]) *Aggregator[T] {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	return &Aggregator[T]{
		delay:   delay,
		onFlush: opts.OnFlush,
		pending: make(map[string]*batch[T]),
	}
}

func (a *Aggregator[T]) Add(key string, item T) {
	if key == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.pending[key]
	if !ok {
		b = &batch[T]{}
		a.pending[key] = b
	}
	b.items = append(b.items, item)

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(a.delay, func() {
		a.flush(key)
	})
}

// Pending reports how many keys are waiting to flush.
func (a *Aggregator[T]) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Aggregator[T]) flush(key string) {
	a.mu.Lock()
	b, ok := a.pending[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	items := b.items
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(key, items)
	}
}
