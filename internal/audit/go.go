// Package audit keeps a named registry of the runner's goroutines so leaks
// show up with a caller location instead of a bare runtime count. It is
// off unless GATE_AUDIT_GOROUTINES is set.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/reconquest/pkg/log"
	"github.com/reconquest/sign-go"
	"github.com/reconquest/gate-runner/internal/platform"
)

const watchInterval = 3 * time.Second

var registry = struct {
	sync.Mutex
	names map[string]struct{}
}{
	names: map[string]struct{}{},
}

var (
	sequence int64
	enabled  bool

	gopath = filepath.Join(os.Getenv("GOPATH"), "src")
)

// Start enables tracking and spawns the watcher that periodically traces
// the audited count next to the runtime one. SIGHUP dumps every live
// goroutine's registration point; on windows, where SIGHUP is not a
// thing, the watcher dumps them on every tick instead.
func Start() {
	enabled = true

	go func() {
		defer Go("audit", "watcher")()

		for {
			log.Tracef(
				nil,
				"{audit} goroutines audit: %d runtime: %d",
				NumGoroutines(),
				runtime.NumGoroutine(),
			)

			if platform.CURRENT == platform.WINDOWS {
				dump()
			}

			time.Sleep(watchInterval)
		}
	}()

	go sign.Notify(func(_ os.Signal) bool {
		defer Go("audit", "sighup")()

		dump()

		return true
	}, syscall.SIGHUP)
}

// Go registers the calling goroutine under its caller location plus the
// given tokens and returns the deregistration func, meant to be used as
//
//	defer audit.Go("job", index)()
func Go(token ...interface{}) func() {
	if !enabled {
		return func() {}
	}

	_, filename, line, _ := runtime.Caller(1)

	name := fmt.Sprintf(
		"%05d %s:%d",
		atomic.AddInt64(&sequence, 1),
		strings.TrimPrefix(strings.TrimPrefix(filename, gopath), "/"),
		line,
	)
	if len(token) > 0 {
		name += fmt.Sprintf(" | %v", token)
	}

	registry.Lock()
	registry.names[name] = struct{}{}
	registry.Unlock()

	return func() {
		registry.Lock()
		delete(registry.names, name)
		registry.Unlock()
	}
}

func NumGoroutines() int {
	registry.Lock()
	defer registry.Unlock()

	return len(registry.names)
}

// Goroutines returns the registration names of live goroutines, sorted by
// their sequence number.
func Goroutines() []string {
	registry.Lock()

	names := make([]string, 0, len(registry.names))
	for name := range registry.names {
		names = append(names, name)
	}

	registry.Unlock()

	sort.Strings(names)

	return names
}

func dump() {
	routines := Goroutines()

	log.Warningf(nil, "{audit} goroutines: %d", len(routines))
	for _, routine := range routines {
		log.Warningf(nil, "{audit} "+routine)
	}
}
