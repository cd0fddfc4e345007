package device

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

// fakeHandle serves a queue of raw events, then either fails with finalErr
// or blocks until closed.
type fakeHandle struct {
	mu       sync.Mutex
	queue    []*evdev.InputEvent
	finalErr error

	grabErr   error
	grabbed   bool
	ungrabbed bool
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeHandle(events []*evdev.InputEvent, finalErr error) *fakeHandle {
	return &fakeHandle{queue: events, finalErr: finalErr, closed: make(chan struct{})}
}

func (h *fakeHandle) Name() (string, error) { return "Fake Keypad", nil }

func (h *fakeHandle) Grab() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.grabErr != nil {
		return h.grabErr
	}
	h.grabbed = true
	return nil
}

func (h *fakeHandle) Ungrab() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ungrabbed = true
	return nil
}

func (h *fakeHandle) Close() error {
	h.closeOnce.Do(func() { close(h.closed) })
	return nil
}

func (h *fakeHandle) ReadOne() (*evdev.InputEvent, error) {
	h.mu.Lock()
	if len(h.queue) > 0 {
		ev := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()
		return ev, nil
	}
	h.mu.Unlock()
	if h.finalErr != nil {
		return nil, h.finalErr
	}
	<-h.closed
	return nil, os.ErrClosed
}

func (h *fakeHandle) released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ungrabbed
}

// devicePath returns a real file path for the listener to resolve.
func devicePath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event7")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testListener(t *testing.T, open func(string) (Handle, error)) *Listener {
	t.Helper()
	l := newListener(devicePath(t), open)
	l.pollInterval = 5 * time.Millisecond
	l.retryDelay = time.Millisecond
	return l
}

// drain collects all events until the channel closes or the deadline hits.
func drain(t *testing.T, l *Listener) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-l.Events():
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out draining events, got %+v", got)
		}
	}
}

func keyEvent(code uint16, value int32) *evdev.InputEvent {
	return &evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.EvCode(code), Value: value}
}

func TestPermissionErrorIsTerminal(t *testing.T) {
	opens := 0
	l := testListener(t, func(string) (Handle, error) {
		opens++
		return nil, os.ErrPermission
	})
	l.Start()
	got := drain(t, l)

	if opens != 1 {
		t.Errorf("open attempts = %d, want 1 (no retry on permission errors)", opens)
	}
	errs := 0
	for _, ev := range got {
		if ev.Type == Error {
			errs++
		}
	}
	if errs != 1 {
		t.Errorf("error events = %d, want exactly 1: %+v", errs, got)
	}
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after terminal error")
	}
}

func TestMissingDeviceIsTerminal(t *testing.T) {
	l := newListener(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	l.Start()
	got := drain(t, l)
	if len(got) != 1 || got[0].Type != Error {
		t.Errorf("events = %+v, want a single error event", got)
	}
}

func TestGrabConflictFailsLoudly(t *testing.T) {
	h := newFakeHandle(nil, nil)
	h.grabErr = errors.New("device or resource busy")
	l := testListener(t, func(string) (Handle, error) { return h, nil })
	l.Start()
	got := drain(t, l)

	errs := 0
	for _, ev := range got {
		if ev.Type == Error {
			errs++
		}
	}
	if errs != 1 {
		t.Errorf("error events = %d, want 1: %+v", errs, got)
	}
	select {
	case <-h.closed:
	default:
		t.Error("handle not closed after grab failure")
	}
}

func TestKeyTransitions(t *testing.T) {
	h := newFakeHandle([]*evdev.InputEvent{
		keyEvent(79, 1),
		{Type: evdev.EV_SYN},
		keyEvent(79, 2), // autorepeat, ignored
		{Type: evdev.EV_REL, Value: 1},
		keyEvent(79, 0),
		keyEvent(80, 1),
	}, nil)
	l := testListener(t, func(string) (Handle, error) { return h, nil })
	l.Start()

	var keys []Event
	deadline := time.After(2 * time.Second)
	for len(keys) < 3 {
		select {
		case ev := <-l.Events():
			if ev.Type == KeyDown || ev.Type == KeyUp {
				keys = append(keys, ev)
			}
		case <-deadline:
			t.Fatalf("timed out, got %+v", keys)
		}
	}

	want := []Event{
		{Type: KeyDown, Code: 79},
		{Type: KeyUp, Code: 79},
		{Type: KeyDown, Code: 80},
	}
	for i, w := range want {
		if keys[i].Type != w.Type || keys[i].Code != w.Code {
			t.Errorf("event %d = %+v, want %+v", i, keys[i], w)
		}
	}

	l.Stop()
	drain(t, l)
}

func TestStopReleasesHandle(t *testing.T) {
	h := newFakeHandle(nil, nil)
	l := testListener(t, func(string) (Handle, error) { return h, nil })
	l.Start()

	// wait until listening
	select {
	case ev := <-l.Events():
		if ev.Type != Status {
			t.Fatalf("first event = %+v, want status", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no status event")
	}

	l.Stop()
	got := drain(t, l)

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Stop")
	}
	if !h.released() {
		t.Error("device not ungrabbed on stop")
	}
	last := got[len(got)-1]
	if last.Type != Status {
		t.Errorf("final event = %+v, want a status event", last)
	}
}

// Three transient read errors in a row must produce three reconnect cycles,
// a recovery on the fourth open, and no error events.
func TestTransientErrorsRecover(t *testing.T) {
	var handles []*fakeHandle
	opens := 0
	l := testListener(t, func(string) (Handle, error) {
		opens++
		var h *fakeHandle
		if opens <= 3 {
			h = newFakeHandle(nil, errors.New("read: input/output error"))
		} else {
			h = newFakeHandle(nil, nil)
		}
		handles = append(handles, h)
		return h, nil
	})
	l.Start()

	listening, retries := 0, 0
	deadline := time.After(2 * time.Second)
	for listening < 4 {
		select {
		case ev := <-l.Events():
			switch ev.Type {
			case Error:
				t.Fatalf("unexpected error event: %+v", ev)
			case Status:
				switch {
				case containsListening(ev.Message):
					listening++
				default:
					retries++
				}
			}
		case <-deadline:
			t.Fatalf("no recovery: listening=%d retries=%d", listening, retries)
		}
	}

	if opens != 4 {
		t.Errorf("open attempts = %d, want 4", opens)
	}
	if retries < 3 {
		t.Errorf("retry status events = %d, want at least 3", retries)
	}
	for i, h := range handles[:3] {
		if !h.released() {
			t.Errorf("handle %d not released before reopen", i)
		}
	}

	l.Stop()
	drain(t, l)
}

func containsListening(msg string) bool {
	return len(msg) >= 9 && msg[:9] == "listening"
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "event3")
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "by-id-link")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	wantTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ResolvePath(link)
	if err != nil {
		t.Fatalf("ResolvePath(link): %v", err)
	}
	if got != wantTarget {
		t.Errorf("ResolvePath(link) = %q, want %q", got, wantTarget)
	}

	// plain paths come back untouched
	got, err = ResolvePath(target)
	if err != nil {
		t.Fatal(err)
	}
	if got != target {
		t.Errorf("ResolvePath(plain) = %q, want %q", got, target)
	}

	// dangling symlink is an error, not a path to open
	dangling := filepath.Join(dir, "dangling")
	if err := os.Symlink(filepath.Join(dir, "gone"), dangling); err != nil {
		t.Fatal(err)
	}
	if _, err := ResolvePath(dangling); err == nil {
		t.Error("ResolvePath(dangling) should fail")
	}
}
