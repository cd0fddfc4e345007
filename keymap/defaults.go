package keymap

import (
	evdev "github.com/holoplot/go-evdev"
)

// SuggestedDefaults returns the built-in mapping for the eight slots of a
// small numeric keypad: a handful of common desktop shortcuts. Used as the
// starting point when no profile exists yet.
func SuggestedDefaults() Mapping {
	return Mapping{
		uint16(evdev.KEY_KP1): {Kind: KindCombo, Value: "Ctrl+Alt+T"},
		uint16(evdev.KEY_KP2): {Kind: KindCombo, Value: "Super+A"},
		uint16(evdev.KEY_KP3): {Kind: KindCombo, Value: "Super"},
		uint16(evdev.KEY_KP4): {Kind: KindCombo, Value: "Super+E"},
		uint16(evdev.KEY_KP5): {Kind: KindCombo, Value: "Super+Tab"},
		uint16(evdev.KEY_KP6): {Kind: KindCombo, Value: "Alt+Tab"},
		uint16(evdev.KEY_KP7): {Kind: KindCombo, Value: "Super+L"},
		uint16(evdev.KEY_KP8): {Kind: KindCombo, Value: "Super+H"},
	}
}
