// Package combo translates human-written key combination strings like
// "Ctrl+Alt+T" into the +-joined token sequences the shortcut synthesizer
// (xdotool) understands.
package combo

import (
	"fmt"
	"strings"
)

// Modifier aliases, matched case-insensitively. META and WIN are the same
// physical key as SUPER on most keyboards.
var modAliases = map[string]string{
	"CTRL":    "ctrl",
	"CONTROL": "ctrl",
	"ALT":     "alt",
	"SHIFT":   "shift",
	"SUPER":   "super",
	"META":    "super",
	"WIN":     "super",
}

// Named keysyms, matched case-insensitively. Values are the canonical X
// keysym names xdotool expects.
var keysyms = map[string]string{
	"TAB":         "Tab",
	"RETURN":      "Return",
	"ENTER":       "Return",
	"ESC":         "Escape",
	"ESCAPE":      "Escape",
	"SPACE":       "space",
	"BACKSPACE":   "BackSpace",
	"BKSP":        "BackSpace",
	"DELETE":      "Delete",
	"DEL":         "Delete",
	"INSERT":      "Insert",
	"INS":         "Insert",
	"HOME":        "Home",
	"END":         "End",
	"PAGEUP":      "Prior",
	"PGUP":        "Prior",
	"PAGEDOWN":    "Next",
	"PGDN":        "Next",
	"LEFT":        "Left",
	"RIGHT":       "Right",
	"UP":          "Up",
	"DOWN":        "Down",
	"PRINTSCREEN": "Print",
	"PRTSC":       "Print",
	"VOLUMEUP":    "XF86AudioRaiseVolume",
	"VOLUMEDOWN":  "XF86AudioLowerVolume",
	"MUTE":        "XF86AudioMute",
	"PLAY":        "XF86AudioPlay",
	"NEXT":        "XF86AudioNext",
	"PREV":        "XF86AudioPrev",
}

func init() {
	for i := 1; i <= 24; i++ {
		name := fmt.Sprintf("F%d", i)
		keysyms[name] = name
	}
}

// Translate converts a user-facing combo string into a synthesizer token
// sequence. Tokens are separated by '+' or '-', classified one by one
// (modifier alias, single alphanumeric, named keysym, pass-through) and
// rejoined with '+'. Token order is preserved; the synthesizer cares about
// modifier order, so tokens are never reordered or deduplicated. Unknown
// tokens pass through unchanged, so Translate never fails and is idempotent
// on its own output.
func Translate(combo string) string {
	parts := strings.Split(strings.ReplaceAll(combo, "-", "+"), "+")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		u := strings.ToUpper(p)
		switch {
		case modAliases[u] != "":
			out = append(out, modAliases[u])
		case len(p) == 1 && isAlnum(p[0]):
			out = append(out, strings.ToLower(p))
		case keysyms[u] != "":
			out = append(out, keysyms[u])
		default:
			out = append(out, p)
		}
	}
	return strings.Join(out, "+")
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
