// Package monitoring reports unexpected errors and panics to an external
// error tracker. The default monitor discards everything.
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// Recover reports a panic of the calling goroutine and re-panics. It must
// be deferred directly: defer monitoring.Recover().
func Recover() {
	if r := recover(); r != nil {
		m := get()
		m.CapturePanic(r)
		m.Flush(2 * time.Second)
		panic(r)
	}
}

// Go runs fn and converts a panic into an error after reporting it.
func Go(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			get().CapturePanic(r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}
