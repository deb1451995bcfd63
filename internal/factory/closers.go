package factory

import (
	"errors"
	"io"
	"sync"
)

// Closers collects the resources opened by the factories so they can be
// released together on shutdown.
type Closers struct {
	mu   sync.Mutex
	list []io.Closer
}

// NewClosers creates an empty set
func NewClosers() *Closers {
	return &Closers{}
}

// Add registers c. Nil values are ignored.
func (c *Closers) Add(closer io.Closer) {
	if closer == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = append(c.list, closer)
}

// Close releases everything in reverse order of registration
func (c *Closers) Close() error {
	c.mu.Lock()
	list := c.list
	c.list = nil
	c.mu.Unlock()

	var errs []error
	for i := len(list) - 1; i >= 0; i-- {
		if err := list[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
