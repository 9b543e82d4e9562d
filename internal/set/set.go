// Package set holds the small generated set types the runner tracks ids
// and live processes with. Not safe for concurrent use, callers guard
// their own instances.
package set

import (
	"github.com/cheekybits/genny/generic"
)

//go:generate genny -in=set.go -out=set_gen.go gen "Type=string,int"

type (
	Type generic.Type
)

type TypeSet struct {
	items map[Type]struct{}
}

func NewTypeSet(values ...Type) *TypeSet {
	set := &TypeSet{items: map[Type]struct{}{}}
	for _, value := range values {
		set.items[value] = struct{}{}
	}

	return set
}

func (set *TypeSet) Put(value Type) {
	set.items[value] = struct{}{}
}

func (set *TypeSet) Delete(value Type) {
	delete(set.items, value)
}

func (set *TypeSet) Has(value Type) bool {
	_, ok := set.items[value]
	return ok
}

func (set *TypeSet) List() []Type {
	values := make([]Type, 0, len(set.items))
	for value := range set.items {
		values = append(values, value)
	}

	return values
}
