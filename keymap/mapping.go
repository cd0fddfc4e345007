package keymap

// Mapping associates raw device key codes with actions. Codes are unique by
// construction; setting a code that is already mapped replaces the previous
// action (last write wins).
type Mapping map[uint16]Action

// Resolve looks up the action for a key code. No side effects.
func (m Mapping) Resolve(code uint16) (Action, bool) {
	a, ok := m[code]
	return a, ok
}

// Set validates the action and stores it under code, replacing any previous
// entry.
func (m Mapping) Set(code uint16, a Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	m[code] = a
	return nil
}

// Delete removes the entry for code, if any.
func (m Mapping) Delete(code uint16) {
	delete(m, code)
}

// Clone returns an independent copy of the mapping.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for code, a := range m {
		out[code] = a
	}
	return out
}
