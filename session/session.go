// Package session owns the listener lifecycle and the profile. At most one
// device is grabbed at any time; starting a new listener first waits for the
// previous one to release its grab. The listener worker only emits events;
// all profile reads and writes happen on this side.
package session

import (
	"fmt"
	"sync"
	"time"

	"dlarsson/keypadd/device"
	"dlarsson/keypadd/dispatch"
	"dlarsson/keypadd/keymap"
)

// EventType classifies outbound session events.
type EventType int

const (
	Status EventType = iota
	Error
	KeyDown
	KeyUp
	Recorded
)

// String returns the wire name used by the dashboard event stream.
func (t EventType) String() string {
	switch t {
	case Status:
		return "status"
	case Error:
		return "error"
	case KeyDown:
		return "key_down"
	case KeyUp:
		return "key_up"
	case Recorded:
		return "recorded"
	}
	return "unknown"
}

// Event is the single outbound stream consumed by collaborators (dashboard,
// tray, log).
type Event struct {
	Type    EventType
	Code    uint16
	Message string
}

// listener is the slice of device.Listener the controller needs; tests
// substitute fakes.
type listener interface {
	Start()
	Stop()
	Done() <-chan struct{}
	Events() <-chan device.Event
}

// Controller wires the device listener to the dispatch engine and exposes
// the profile operations collaborators call.
type Controller struct {
	dispatcher *dispatch.Dispatcher
	events     chan Event

	// OnDispatch, when set, observes every dispatched action (for the
	// history log). Set it before Start.
	OnDispatch func(code uint16, act keymap.Action, err error)

	// lifecycle state, guarded by mu
	mu       sync.Mutex
	listener listener
	pumpDone chan struct{}

	// profile, guarded separately so the event pump never contends with
	// lifecycle operations
	pmu     sync.RWMutex
	profile *keymap.Profile

	newListener func(path string) listener
	stopTimeout time.Duration
}

// New returns a controller owning the given profile.
func New(p *keymap.Profile, d *dispatch.Dispatcher) *Controller {
	return &Controller{
		dispatcher:  d,
		profile:     p,
		events:      make(chan Event, 128),
		newListener: func(path string) listener { return device.New(path) },
		stopTimeout: time.Second,
	}
}

// Events returns the controller's outbound event stream.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Start begins listening on path. Any active listener is stopped first and
// its grab released before the new device is opened, so two grabs never
// coexist. The device path is remembered on the profile.
func (c *Controller) Start(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.stopLocked(); err != nil {
		return err
	}

	c.pmu.Lock()
	c.profile.DevicePath = path
	c.pmu.Unlock()

	l := c.newListener(path)
	done := make(chan struct{})
	c.listener = l
	c.pumpDone = done
	l.Start()
	go c.pump(l, done)
	return nil
}

// Stop tears down the active listener, waiting (bounded) for the device to
// be released. Idempotent when nothing is running.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *Controller) stopLocked() error {
	if c.listener == nil {
		return nil
	}
	c.listener.Stop()
	select {
	case <-c.listener.Done():
	case <-time.After(c.stopTimeout):
		return fmt.Errorf("listener did not stop within %v", c.stopTimeout)
	}
	<-c.pumpDone
	c.listener = nil
	c.pumpDone = nil
	return nil
}

// Running reports whether a listener is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener != nil
}

// pump consumes one listener's events, feeding key-downs through the
// dispatch engine and forwarding everything to the outbound stream.
func (c *Controller) pump(l listener, done chan struct{}) {
	defer close(done)
	for ev := range l.Events() {
		switch ev.Type {
		case device.KeyDown:
			c.handleKeyDown(ev.Code)
			c.emit(Event{Type: KeyDown, Code: ev.Code})
		case device.KeyUp:
			c.emit(Event{Type: KeyUp, Code: ev.Code})
		case device.Status:
			c.emit(Event{Type: Status, Message: ev.Message})
		case device.Error:
			c.emit(Event{Type: Error, Message: ev.Message})
		}
	}
}

func (c *Controller) handleKeyDown(code uint16) {
	p := c.Profile()
	fired, recorded, err := c.dispatcher.OnKeyDown(p, code)
	if recorded {
		c.emit(Event{Type: Recorded, Code: code})
		return
	}
	if fired != nil && c.OnDispatch != nil {
		c.OnDispatch(code, *fired, err)
	}
	if err != nil {
		// spawn failures are non-fatal; the listener keeps running
		c.emit(Event{Type: Error, Message: fmt.Sprintf("dispatch key %d: %v", code, err)})
	}
}

// emit never blocks the pump; a slow or absent consumer loses events rather
// than stalling dispatch.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

// Profile returns a snapshot of the current profile. The snapshot's mapping
// is not mutated afterwards (mutations swap in a fresh copy), so it is safe
// to read without further locking.
func (c *Controller) Profile() *keymap.Profile {
	c.pmu.RLock()
	defer c.pmu.RUnlock()
	return &keymap.Profile{
		DevicePath: c.profile.DevicePath,
		Enabled:    c.profile.Enabled,
		Mapping:    c.profile.Mapping,
	}
}

// SetDevicePath stores a device path on the profile without starting a
// listener on it.
func (c *Controller) SetDevicePath(path string) {
	c.pmu.Lock()
	c.profile.DevicePath = path
	c.pmu.Unlock()
}

// SetEnabled flips the dispatch gate. Takes effect on the next observed key
// event; nothing is replayed.
func (c *Controller) SetEnabled(on bool) {
	c.pmu.Lock()
	c.profile.Enabled = on
	c.pmu.Unlock()
	if on {
		c.emit(Event{Type: Status, Message: "dispatch enabled"})
	} else {
		c.emit(Event{Type: Status, Message: "dispatch disabled"})
	}
}

// Enabled reports the dispatch gate.
func (c *Controller) Enabled() bool {
	c.pmu.RLock()
	defer c.pmu.RUnlock()
	return c.profile.Enabled
}

// SetMapping validates the action and maps it to code, replacing any
// previous entry.
func (c *Controller) SetMapping(code uint16, act keymap.Action) error {
	if err := act.Validate(); err != nil {
		return err
	}
	c.mutateMapping(func(m keymap.Mapping) {
		m[code] = act
	})
	return nil
}

// DeleteMapping removes the entry for code.
func (c *Controller) DeleteMapping(code uint16) {
	c.mutateMapping(func(m keymap.Mapping) {
		m.Delete(code)
	})
}

// ReplaceMapping swaps in an entire mapping table after validating every
// entry. Used by the dashboard's bulk edit.
func (c *Controller) ReplaceMapping(m keymap.Mapping) error {
	for code, act := range m {
		if err := act.Validate(); err != nil {
			return fmt.Errorf("key code %d: %w", code, err)
		}
	}
	c.pmu.Lock()
	c.profile.Mapping = m.Clone()
	c.pmu.Unlock()
	return nil
}

// EnsureDefaults fills in the suggested defaults only if the mapping is
// empty.
func (c *Controller) EnsureDefaults() {
	c.pmu.Lock()
	c.profile.EnsureDefaults()
	c.pmu.Unlock()
}

// ApplyDefaults overwrites mapping entries with the suggested defaults.
// Callers confirm the overwrite with the user first.
func (c *Controller) ApplyDefaults() {
	c.mutateMapping(func(m keymap.Mapping) {
		for code, a := range keymap.SuggestedDefaults() {
			m[code] = a
		}
	})
}

// mutateMapping applies fn to a copy of the mapping and swaps it in, so
// snapshots handed out earlier stay immutable.
func (c *Controller) mutateMapping(fn func(keymap.Mapping)) {
	c.pmu.Lock()
	defer c.pmu.Unlock()
	m := c.profile.Mapping.Clone()
	fn(m)
	c.profile.Mapping = m
}

// ArmRecord arms the engine's record-next-key mode.
func (c *Controller) ArmRecord() {
	c.dispatcher.ArmRecord()
	c.emit(Event{Type: Status, Message: "press a key to record its code"})
}

// TestAction fires the action mapped to code directly, bypassing the
// enabled gate. Used by the dashboard's test button.
func (c *Controller) TestAction(code uint16) error {
	p := c.Profile()
	act, ok := p.Mapping.Resolve(code)
	if !ok {
		return fmt.Errorf("no action mapped to key code %d", code)
	}
	return c.dispatcher.Fire(act)
}

// Save writes the profile to path. Explicit only; there is no autosave.
func (c *Controller) Save(path string) error {
	return keymap.Save(path, c.Profile())
}
