package keymap

import "testing"

func TestMappingResolve(t *testing.T) {
	m := Mapping{
		2: {Kind: KindCombo, Value: "Ctrl+Alt+T"},
	}
	if a, ok := m.Resolve(2); !ok || a.Value != "Ctrl+Alt+T" {
		t.Errorf("Resolve(2) = %+v, %v", a, ok)
	}
	if _, ok := m.Resolve(99); ok {
		t.Error("Resolve(99) should miss")
	}
}

func TestMappingSet(t *testing.T) {
	m := make(Mapping)
	if err := m.Set(3, Action{Kind: KindCommand, Value: "echo hi"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set(3, Action{Kind: KindCommand, Value: ""}); err == nil {
		t.Error("Set with empty value should fail")
	}
	// rejected action must not have replaced the stored one
	if a, _ := m.Resolve(3); a.Value != "echo hi" {
		t.Errorf("invalid Set mutated mapping: %+v", a)
	}
	// last write wins
	if err := m.Set(3, Action{Kind: KindCombo, Value: "Super+L"}); err != nil {
		t.Fatal(err)
	}
	if a, _ := m.Resolve(3); a.Kind != KindCombo || a.Value != "Super+L" {
		t.Errorf("Set did not replace: %+v", a)
	}
}

func TestMappingClone(t *testing.T) {
	m := Mapping{5: {Kind: KindCommand, Value: "true"}}
	c := m.Clone()
	c[5] = Action{Kind: KindCombo, Value: "Alt+Tab"}
	c[6] = Action{Kind: KindCommand, Value: "false"}
	if a, _ := m.Resolve(5); a.Kind != KindCommand {
		t.Error("Clone shares storage with original")
	}
	if _, ok := m.Resolve(6); ok {
		t.Error("Clone shares storage with original")
	}
}
