package set

import (
	"os/exec"
	"sync"
)

// ExecCmdSet is a mutex-guarded set of running processes, used by the
// shell executor to track what has to be killed on destroy.
type ExecCmdSet struct {
	mutex sync.Mutex
	items map[*exec.Cmd]struct{}
}

func NewExecCmdSet(values ...*exec.Cmd) *ExecCmdSet {
	set := &ExecCmdSet{items: map[*exec.Cmd]struct{}{}}
	for _, value := range values {
		set.Put(value)
	}
	return set
}

func (set *ExecCmdSet) Has(value *exec.Cmd) bool {
	set.mutex.Lock()
	defer set.mutex.Unlock()

	_, ok := set.items[value]
	return ok
}

func (set *ExecCmdSet) Put(value *exec.Cmd) {
	set.mutex.Lock()
	defer set.mutex.Unlock()

	set.items[value] = struct{}{}
}

func (set *ExecCmdSet) Delete(value *exec.Cmd) {
	set.mutex.Lock()
	defer set.mutex.Unlock()

	delete(set.items, value)
}

func (set *ExecCmdSet) List() []*exec.Cmd {
	set.mutex.Lock()
	defer set.mutex.Unlock()

	slice := make([]*exec.Cmd, len(set.items))
	i := 0
	for value := range set.items {
		slice[i] = value
		i++
	}
	return slice
}
