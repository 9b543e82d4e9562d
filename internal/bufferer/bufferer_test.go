package bufferer

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

type sink struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (sink *sink) flush(data []byte) {
	sink.mutex.Lock()
	defer sink.mutex.Unlock()

	sink.buffer.Write(data)
}

func (sink *sink) String() string {
	sink.mutex.Lock()
	defer sink.mutex.Unlock()

	return sink.buffer.String()
}

func TestBufferer_FlushesEverythingBeforeClose(t *testing.T) {
	test := assert.New(t)

	sink := &sink{}
	bufferer := NewBufferer(16, time.Hour, sink.flush)

	go bufferer.Run()

	for i := 0; i < 50; i++ {
		_, err := bufferer.Write([]byte("gate line\n"))
		test.NoError(err)
	}

	test.NoError(bufferer.Close())

	test.Equal(50, strings.Count(sink.String(), "gate line\n"))
}

func TestBufferer_FlushesOnTimeoutWhileChunkIsSmall(t *testing.T) {
	test := assert.New(t)

	sink := &sink{}
	bufferer := NewBufferer(1024*1024, time.Millisecond*50, sink.flush)

	go bufferer.Run()
	defer bufferer.Close()

	_, err := bufferer.Write([]byte("collecting tests\n"))
	test.NoError(err)

	deadline := time.Now().Add(time.Second * 5)
	for sink.String() == "" {
		if time.Now().After(deadline) {
			t.Fatal("timeout flush never happened")
		}

		time.Sleep(time.Millisecond * 10)
	}

	test.Contains(sink.String(), "collecting tests")
}

func TestBufferer_CloseRacesWithWriters(t *testing.T) {
	test := assert.New(t)

	bufferer := NewBufferer(100, time.Millisecond*100, func([]byte) {})

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		bufferer.Run()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := bufferer.Write([]byte("a"))
			test.NoError(err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		test.NoError(bufferer.Close())
	}()

	wg.Wait()
}
