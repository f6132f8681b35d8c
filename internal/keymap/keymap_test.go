package keymap

import (
	"errors"
	"testing"
)

func TestDefaultsHaveNoDuplicates(t *testing.T) {
	km, err := New(Defaults())
	if err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	cases := map[string]Action{
		" ":      Split,
		"space":  Split,
		"s":      Skip,
		"ctrl+s": Save,
		"h":      Hide,
		"c":      SwitchComparison,
	}
	for k, want := range cases {
		got, ok := km.Lookup(k)
		if !ok || got != want {
			t.Fatalf("lookup %q: expected %s, got %s (%v)", k, want, got, ok)
		}
	}
	if _, ok := km.Lookup("x"); ok {
		t.Fatalf("expected unbound key")
	}
}

func TestDuplicateKeyRejected(t *testing.T) {
	bindings := Defaults()
	bindings[Save] = []string{"s"}
	_, err := New(bindings)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestFromNames(t *testing.T) {
	km, err := FromNames(map[string][]string{"split": {"enter", "space"}, "Save": {"w"}})
	if err != nil {
		t.Fatalf("from names: %v", err)
	}
	if a, _ := km.Lookup("enter"); a != Split {
		t.Fatalf("expected enter to split")
	}
	if a, _ := km.Lookup("w"); a != Save {
		t.Fatalf("expected w to save")
	}
	if _, ok := km.Lookup("ctrl+s"); ok {
		t.Fatalf("overridden default key should be unbound")
	}
	if _, err := FromNames(map[string][]string{"jump": {"j"}}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestHelpBindings(t *testing.T) {
	km, err := New(map[Action][]string{Split: {"space"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !km.Binding(Split).Enabled() {
		t.Fatalf("split binding should be enabled")
	}
	if km.Binding(Undo).Enabled() {
		t.Fatalf("unbound action should be disabled")
	}
	if got := km.Binding(Split).Help().Key; got != "space" {
		t.Fatalf("unexpected help key %q", got)
	}
	if len(km.FullHelp()) != 3 {
		t.Fatalf("expected 3 help columns")
	}
}
