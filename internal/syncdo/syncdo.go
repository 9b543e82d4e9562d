// Package syncdo provides a one-shot action latch. Unlike sync.Once the
// first call's error is remembered and handed back to every later caller.
package syncdo

import "sync"

// Action runs a function at most once. The zero value is ready to use.
type Action struct {
	mutex sync.Mutex
	fired bool
	err   error
}

// Do invokes fn on the first call and records its error; subsequent calls
// skip fn and return whatever the first call produced.
func (action *Action) Do(fn func() error) error {
	action.mutex.Lock()
	defer action.mutex.Unlock()

	if !action.fired {
		action.fired = true
		action.err = fn()
	}

	return action.err
}
