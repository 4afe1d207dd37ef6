package pipeline

import "sync/atomic"

// Credentials is the process-wide "credentials ready" gate. It turns false on
// an AuthInvalid failure and only turns true again through SelectCredentials.
type Credentials struct {
	ready atomic.Bool
}

func NewCredentials(ready bool) *Credentials {
	c := &Credentials{}
	c.ready.Store(ready)
	return c
}

func (c *Credentials) Ready() bool {
	return c.ready.Load()
}

func (c *Credentials) Set(ready bool) {
	c.ready.Store(ready)
}
