package device

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// Info describes one enumerated input device for the picker UI.
type Info struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	HasKeys bool   `json:"has_keys"`
}

// List enumerates /dev/input event devices, reporting name and whether the
// device emits key events. Devices that cannot be opened (usually a
// permission problem) still appear, with the error in place of the name, so
// the UI can show the user what exists.
func List() ([]Info, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	var infos []Info
	for _, p := range paths {
		if !isCharDevice(p.Path) {
			continue
		}
		dev, err := evdev.Open(p.Path)
		if err != nil {
			infos = append(infos, Info{Path: p.Path, Name: fmt.Sprintf("<%v>", err)})
			continue
		}
		name, err := dev.Name()
		if err != nil {
			name = p.Name
		}
		hasKeys := false
		for _, t := range dev.CapableTypes() {
			if t == evdev.EV_KEY {
				hasKeys = true
				break
			}
		}
		dev.Close()
		infos = append(infos, Info{Path: p.Path, Name: name, HasKeys: hasKeys})
	}
	return infos, nil
}

// isCharDevice guards against odd entries under /dev/input; event nodes are
// character-special files.
func isCharDevice(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFCHR
}
