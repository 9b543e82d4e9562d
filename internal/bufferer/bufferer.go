// Package bufferer coalesces job log output into chunks so the report and
// the log consumers are not hit with a write per line. A chunk is flushed
// when it grows past the size threshold or when the timeout fires,
// whichever comes first.
package bufferer

import (
	"bytes"
	"sync"
	"time"

	"github.com/reconquest/gate-runner/internal/audit"
	"github.com/reconquest/gate-runner/internal/utils"
)

var (
	DefaultLogsBufferSize    = 1024
	DefaultLogsBufferTimeout = time.Second * 2
)

const pipeCapacity = 128

//go:generate gonstructor -type Bufferer -init init
type Bufferer struct {
	size     int
	duration time.Duration
	flush    func([]byte)

	pipe    chan []byte   `gonstructor:"-"`
	closing chan struct{} `gonstructor:"-"`

	writers     sync.WaitGroup `gonstructor:"-"`
	writersLock sync.Mutex     `gonstructor:"-"`

	closeOnce sync.Once `gonstructor:"-"`
}

func (bufferer *Bufferer) init() {
	bufferer.pipe = make(chan []byte, pipeCapacity)
	bufferer.closing = make(chan struct{})
}

// Run is the flush loop; the caller starts it in a goroutine of its own
// and stops it with Close.
func (bufferer *Bufferer) Run() {
	defer audit.Go("bufferer")()

	bufferer.enter()
	defer bufferer.writers.Done()

	var (
		chunk = bytes.NewBuffer(nil)
		timer = utils.NewTicker(bufferer.duration)
	)

	for {
		select {
		case data, ok := <-bufferer.pipe:
			if !ok {
				bufferer.flush(chunk.Bytes())
				return
			}

			chunk.Write(data)

			if chunk.Len() >= bufferer.size {
				bufferer.flush(chunk.Bytes())
				chunk.Reset()
				timer.Reset()
			}

		case <-timer.Get():
			if chunk.Len() != 0 {
				bufferer.flush(chunk.Bytes())
				chunk.Reset()
			}

			timer.Reset()

		case <-bufferer.closing:
			bufferer.flush(chunk.Bytes())
			return
		}
	}
}

func (bufferer *Bufferer) Write(data []byte) (int, error) {
	bufferer.enter()
	defer bufferer.writers.Done()

	// writes racing with Close are dropped, not blocked
	select {
	case <-bufferer.closing:
		return len(data), nil
	default:
	}

	select {
	case <-bufferer.closing:
	case bufferer.pipe <- data:
	}

	return len(data), nil
}

// Close flushes whatever is pending and waits for in-flight writers and
// the Run loop to drain. Safe to call more than once.
func (bufferer *Bufferer) Close() error {
	bufferer.closeOnce.Do(func() {
		close(bufferer.closing)

		go func() {
			for range bufferer.pipe {
			}
		}()

		bufferer.writersLock.Lock()
		bufferer.writers.Wait()
		bufferer.writersLock.Unlock()
	})

	return nil
}

func (bufferer *Bufferer) enter() {
	bufferer.writersLock.Lock()
	bufferer.writers.Add(1)
	bufferer.writersLock.Unlock()
}
