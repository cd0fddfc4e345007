package keymap

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Profile is the persisted configuration unit: which device to grab, whether
// dispatch is enabled, and the key mapping. It is loaded once at startup and
// written back only on an explicit save.
type Profile struct {
	DevicePath string
	Enabled    bool
	Mapping    Mapping
}

// NewProfile returns a profile with the suggested default mapping and
// dispatch enabled.
func NewProfile() *Profile {
	return &Profile{
		Enabled: true,
		Mapping: SuggestedDefaults(),
	}
}

// EnsureDefaults fills in the suggested default mapping only when the
// current mapping is empty. A non-empty user mapping is never touched.
func (p *Profile) EnsureDefaults() {
	if len(p.Mapping) == 0 {
		p.Mapping = SuggestedDefaults()
	}
}

// ApplyDefaults overwrites the mapping entries with the suggested defaults,
// regardless of what is there. Callers are expected to have confirmed the
// overwrite with the user; this is deliberately a separate operation from
// EnsureDefaults.
func (p *Profile) ApplyDefaults() {
	if p.Mapping == nil {
		p.Mapping = make(Mapping)
	}
	for code, a := range SuggestedDefaults() {
		p.Mapping[code] = a
	}
}

// Clone returns a copy sharing no mutable state with the receiver.
func (p *Profile) Clone() *Profile {
	return &Profile{
		DevicePath: p.DevicePath,
		Enabled:    p.Enabled,
		Mapping:    p.Mapping.Clone(),
	}
}

// profileJSON is the on-disk schema. Mapping keys are the decimal string
// form of the key code, for compatibility with the original profile files.
type profileJSON struct {
	DevicePath string            `json:"device_path"`
	Enabled    bool              `json:"enabled"`
	Mapping    map[string]Action `json:"mapping"`
}

// MarshalJSON encodes the profile in the persisted schema.
func (p *Profile) MarshalJSON() ([]byte, error) {
	out := profileJSON{
		DevicePath: p.DevicePath,
		Enabled:    p.Enabled,
		Mapping:    make(map[string]Action, len(p.Mapping)),
	}
	for code, a := range p.Mapping {
		out.Mapping[strconv.Itoa(int(code))] = a
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the persisted schema, validating key codes and
// actions as they enter the mapping.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var in profileJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	mapping := make(Mapping, len(in.Mapping))
	for key, a := range in.Mapping {
		code, err := strconv.ParseUint(key, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid key code %q in mapping: %w", key, err)
		}
		if err := mapping.Set(uint16(code), a); err != nil {
			return fmt.Errorf("key code %s: %w", key, err)
		}
	}
	p.DevicePath = in.DevicePath
	p.Enabled = in.Enabled
	p.Mapping = mapping
	return nil
}

// Load reads a profile from path. A missing file yields the default profile;
// a present but empty mapping is filled with the suggested defaults. Other
// read or decode failures are returned to the caller.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewProfile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", path, err)
	}
	p.EnsureDefaults()
	return p, nil
}

// Save writes the profile to path. Saving is always explicit; nothing in the
// daemon autosaves.
func Save(path string, p *Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}
