// Package safemap holds the generated mutex-guarded maps the scheduler
// tracks running pipelines and their cancel funcs with.
package safemap

import (
	"sync"

	"github.com/cheekybits/genny/generic"
)

//go:generate genny -in=safemap.go -out=safemap_gen.go gen "KeyType=int ValueType=context.CancelFunc,Any"

type (
	KeyType   generic.Type
	ValueType generic.Type
)

type KeyTypeToValueType struct {
	mutex   sync.RWMutex
	entries map[KeyType]ValueType
}

func NewKeyTypeToValueType() KeyTypeToValueType {
	return KeyTypeToValueType{
		entries: map[KeyType]ValueType{},
	}
}

func (safe *KeyTypeToValueType) Load(key KeyType) (ValueType, bool) {
	safe.mutex.RLock()
	defer safe.mutex.RUnlock()

	value, ok := safe.entries[key]

	return value, ok
}

func (safe *KeyTypeToValueType) Store(key KeyType, value ValueType) {
	safe.mutex.Lock()
	defer safe.mutex.Unlock()

	safe.entries[key] = value
}

func (safe *KeyTypeToValueType) Delete(key KeyType) {
	safe.mutex.Lock()
	defer safe.mutex.Unlock()

	delete(safe.entries, key)
}

// Range holds the write lock for the whole walk, callers must not call
// back into the same map from fn.
func (safe *KeyTypeToValueType) Range(fn func(key KeyType, value ValueType) bool) {
	safe.mutex.Lock()
	defer safe.mutex.Unlock()

	for key, value := range safe.entries {
		if !fn(key, value) {
			break
		}
	}
}
