// Package dispatch resolves key-down events against the profile mapping and
// fires the configured side effect through detached sinks.
package dispatch

import (
	"sync"

	"dlarsson/keypadd/combo"
	"dlarsson/keypadd/keymap"
)

// Dispatcher is the action-dispatch engine. It reads the profile, never
// mutates it, and hands resolved actions to its sinks as detached
// invocations. Spawn failures are returned, not raised; the caller reports
// them and keeps going.
type Dispatcher struct {
	runner Runner
	synth  Synthesizer

	mu     sync.Mutex
	record bool
}

// New returns a dispatcher wired to the given sinks.
func New(runner Runner, synth Synthesizer) *Dispatcher {
	return &Dispatcher{runner: runner, synth: synth}
}

// ArmRecord arms the record-next-key mode: the next key-down is captured as
// a code value instead of being dispatched, then the mode disarms itself.
func (d *Dispatcher) ArmRecord() {
	d.mu.Lock()
	d.record = true
	d.mu.Unlock()
}

// RecordArmed reports whether a record request is pending.
func (d *Dispatcher) RecordArmed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record
}

func (d *Dispatcher) takeRecord() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.record {
		return false
	}
	d.record = false
	return true
}

// OnKeyDown handles a single key-press transition. The returned action is
// the one that was fired (nil if nothing fired); recorded reports that the
// press was consumed by an armed record request. When the profile is
// disabled or the code is unmapped, the call is a no-op.
func (d *Dispatcher) OnKeyDown(p *keymap.Profile, code uint16) (fired *keymap.Action, recorded bool, err error) {
	if d.takeRecord() {
		return nil, true, nil
	}
	if !p.Enabled {
		return nil, false, nil
	}
	act, ok := p.Mapping.Resolve(code)
	if !ok {
		return nil, false, nil
	}
	return &act, false, d.Fire(act)
}

// OnKeyUp carries no dispatch semantics; releases exist only for visual
// feedback upstream.
func (d *Dispatcher) OnKeyUp(p *keymap.Profile, code uint16) {}

// Fire executes a single action through the matching sink. Also used
// directly by the dashboard's test-action operation.
func (d *Dispatcher) Fire(act keymap.Action) error {
	if act.Kind == keymap.KindCommand {
		return d.runner.Run(act.Value)
	}
	return d.synth.Press(combo.Translate(act.Value))
}
