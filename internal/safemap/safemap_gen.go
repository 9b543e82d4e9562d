// This file was automatically generated by genny.
// Any changes will be lost if this file is regenerated.
// see https://github.com/cheekybits/genny

package safemap

import (
	"context"
	"sync"
)

type Any = interface{}

type IntToContextCancelFunc struct {
	mutex   sync.RWMutex
	entries map[int]context.CancelFunc
}

func NewIntToContextCancelFunc() IntToContextCancelFunc {
	return IntToContextCancelFunc{
		entries: map[int]context.CancelFunc{},
	}
}

func (safe *IntToContextCancelFunc) Load(key int) (context.CancelFunc, bool) {
	safe.mutex.RLock()
	defer safe.mutex.RUnlock()

	value, ok := safe.entries[key]

	return value, ok
}

func (safe *IntToContextCancelFunc) Store(key int, value context.CancelFunc) {
	safe.mutex.Lock()
	defer safe.mutex.Unlock()

	safe.entries[key] = value
}

func (safe *IntToContextCancelFunc) Delete(key int) {
	safe.mutex.Lock()
	defer safe.mutex.Unlock()

	delete(safe.entries, key)
}

// Range holds the write lock for the whole walk, callers must not call
// back into the same map from fn.
func (safe *IntToContextCancelFunc) Range(fn func(key int, value context.CancelFunc) bool) {
	safe.mutex.Lock()
	defer safe.mutex.Unlock()

	for key, value := range safe.entries {
		if !fn(key, value) {
			break
		}
	}
}

type IntToAny struct {
	mutex   sync.RWMutex
	entries map[int]Any
}

func NewIntToAny() IntToAny {
	return IntToAny{
		entries: map[int]Any{},
	}
}

func (safe *IntToAny) Load(key int) (Any, bool) {
	safe.mutex.RLock()
	defer safe.mutex.RUnlock()

	value, ok := safe.entries[key]

	return value, ok
}

func (safe *IntToAny) Store(key int, value Any) {
	safe.mutex.Lock()
	defer safe.mutex.Unlock()

	safe.entries[key] = value
}

func (safe *IntToAny) Delete(key int) {
	safe.mutex.Lock()
	defer safe.mutex.Unlock()

	delete(safe.entries, key)
}

// Range holds the write lock for the whole walk, callers must not call
// back into the same map from fn.
func (safe *IntToAny) Range(fn func(key int, value Any) bool) {
	safe.mutex.Lock()
	defer safe.mutex.Unlock()

	for key, value := range safe.entries {
		if !fn(key, value) {
			break
		}
	}
}
