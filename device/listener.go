// Package device owns the evdev side of the daemon: exclusive acquisition of
// one input device, the event-reading worker, and device enumeration for the
// picker UI.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

const (
	// pollInterval bounds how long the worker waits for input before
	// re-checking liveness; shutdown latency is bounded by it too.
	pollInterval = 250 * time.Millisecond
	// retryDelay is the pause before reopening after a transient I/O error.
	retryDelay = 500 * time.Millisecond
)

// EventType classifies listener events.
type EventType int

const (
	// Status is informational: connected, retrying, stopped.
	Status EventType = iota
	// Error is terminal for this listener: permission denied, missing
	// device, grab conflict.
	Error
	// KeyDown is a key-press transition on the grabbed device.
	KeyDown
	// KeyUp is a key-release transition.
	KeyUp
)

// Event is what the listener worker emits. Key events carry Code; status and
// error events carry Message.
type Event struct {
	Type    EventType
	Code    uint16
	Message string
}

// Handle is the slice of evdev.InputDevice the listener needs. Tests swap in
// fakes; production code wraps the real device.
type Handle interface {
	Name() (string, error)
	Grab() error
	Ungrab() error
	Close() error
	ReadOne() (*evdev.InputEvent, error)
}

func openEvdev(path string) (Handle, error) {
	return evdev.Open(path)
}

// Listener reads one input device exclusively and emits key transitions on
// its event channel. It runs as a single background worker: start it with
// Start, signal it with Stop, and wait on Done for the handle to be
// released. The worker never mutates shared state; it only emits events.
type Listener struct {
	path string
	open func(string) (Handle, error)

	events chan Event
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	pollInterval time.Duration
	retryDelay   time.Duration
}

// New returns a listener for the given device path. The path may be a
// stable by-id symlink; it is resolved when the worker starts.
func New(path string) *Listener {
	return newListener(path, openEvdev)
}

func newListener(path string, open func(string) (Handle, error)) *Listener {
	return &Listener{
		path:         path,
		open:         open,
		events:       make(chan Event, 64),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
		retryDelay:   retryDelay,
	}
}

// Events returns the listener's outbound event stream. It is closed after
// the worker has released the device and exited.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Start launches the worker.
func (l *Listener) Start() {
	go l.run()
}

// Stop signals the worker to release the device and exit. Safe to call more
// than once. Callers that need the grab released must wait on Done.
func (l *Listener) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Done is closed once the worker has released every resource and exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

var errStopRequested = errors.New("stop requested")

func (l *Listener) run() {
	defer close(l.done)
	defer close(l.events)

	path, err := ResolvePath(l.path)
	if err != nil {
		l.emit(Event{Type: Error, Message: fmt.Sprintf("cannot resolve device path %s: %v", l.path, err)})
		return
	}

	for {
		dev, err := l.open(path)
		if err != nil {
			if terminal, msg := classifyOpenError(path, err); terminal {
				l.emit(Event{Type: Error, Message: msg})
				return
			}
			l.emit(Event{Type: Status, Message: fmt.Sprintf("open %s: %v, retrying", path, err)})
			if !l.pause(l.retryDelay) {
				l.emit(Event{Type: Status, Message: "listener stopped"})
				return
			}
			continue
		}

		// Exclusive grab. A conflict (another process already grabbed the
		// device) is surfaced loudly rather than silently sharing events.
		if err := dev.Grab(); err != nil {
			dev.Close()
			l.emit(Event{Type: Error, Message: fmt.Sprintf("cannot grab %s exclusively: %v", path, err)})
			return
		}

		name, _ := dev.Name()
		l.emit(Event{Type: Status, Message: fmt.Sprintf("listening on %s (%s)", name, path)})

		err = l.listen(dev)

		// Release on every exit path, stop and error alike.
		dev.Ungrab()
		dev.Close()

		if errors.Is(err, errStopRequested) {
			l.emit(Event{Type: Status, Message: "listener stopped"})
			return
		}

		l.emit(Event{Type: Status, Message: fmt.Sprintf("device error: %v, reconnecting", err)})
		if !l.pause(l.retryDelay) {
			l.emit(Event{Type: Status, Message: "listener stopped"})
			return
		}
	}
}

// listen drains the device until a stop signal or a read error. A separate
// reader goroutine blocks in ReadOne; it is unblocked by the caller closing
// the device handle after listen returns.
func (l *Listener) listen(dev Handle) error {
	type keyEvent struct {
		code uint16
		down bool
	}
	readCh := make(chan keyEvent, 16)
	readErr := make(chan error, 1)
	sessionDone := make(chan struct{})
	defer close(sessionDone)

	go func() {
		for {
			ev, err := dev.ReadOne()
			if err != nil {
				readErr <- err
				return
			}
			if ev.Type != evdev.EV_KEY {
				continue
			}
			var down bool
			switch ev.Value {
			case 1:
				down = true
			case 0:
				down = false
			default:
				// autorepeat and friends
				continue
			}
			select {
			case readCh <- keyEvent{code: uint16(ev.Code), down: down}:
			case <-sessionDone:
				return
			}
		}
	}()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return errStopRequested
		case ev := <-readCh:
			if ev.down {
				l.emit(Event{Type: KeyDown, Code: ev.code})
			} else {
				l.emit(Event{Type: KeyUp, Code: ev.code})
			}
		case err := <-readErr:
			return err
		case <-ticker.C:
			// liveness wake with no pending input
		}
	}
}

// pause sleeps for d unless a stop arrives first. Reports whether the worker
// should keep going.
func (l *Listener) pause(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-l.stop:
		return false
	}
}

func (l *Listener) emit(ev Event) {
	l.events <- ev
}

// classifyOpenError separates terminal open failures (user-actionable, no
// retry) from transient ones.
func classifyOpenError(path string, err error) (terminal bool, msg string) {
	switch {
	case os.IsPermission(err):
		return true, fmt.Sprintf("permission denied for %s: add your user to the input group or adjust udev rules (%v)", path, err)
	case os.IsNotExist(err):
		return true, fmt.Sprintf("device not found: %s", path)
	}
	return false, ""
}

// ResolvePath resolves stable by-id symlinks to the concrete event node, so
// a profile survives device re-enumeration across reboots. Non-symlink paths
// are returned as-is.
func ResolvePath(path string) (string, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return "", err
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return path, nil
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("broken symlink: %w", err)
	}
	return resolved, nil
}
