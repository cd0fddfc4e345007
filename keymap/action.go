// Package keymap holds the mapping-table data model: actions, the key-code
// mapping, the suggested defaults and the persisted profile format.
package keymap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the two action variants. Keeping it an enum (instead of
// a free-form string) means dispatch can switch over it exhaustively with no
// "unknown kind" branch at runtime; unknown strings are rejected at the JSON
// boundary.
type Kind int

const (
	// KindCommand runs the value as a shell command, verbatim.
	KindCommand Kind = iota
	// KindCombo translates the value and hands it to the shortcut synthesizer.
	KindCombo
)

func (k Kind) String() string {
	if k == KindCombo {
		return "combo"
	}
	return "command"
}

// ParseKind parses the persisted form of a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "command":
		return KindCommand, nil
	case "combo":
		return KindCombo, nil
	}
	return 0, fmt.Errorf("unknown action kind %q", s)
}

// MarshalJSON encodes the kind as its persisted string form.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes and validates the persisted string form.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ErrEmptyValue is returned by Validate for actions with a blank value.
var ErrEmptyValue = errors.New("action value is empty")

// Action is the side effect a mapped key fires: either a shell command run
// verbatim, or a key combination in user syntax (e.g. "Ctrl+Alt+T").
type Action struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// Validate rejects actions that could never do anything. Called before an
// action enters a Mapping, so dispatch never sees an invalid one.
func (a Action) Validate() error {
	if strings.TrimSpace(a.Value) == "" {
		return ErrEmptyValue
	}
	return nil
}

func (a Action) String() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.Value)
}
