// Package keymap maps key presses to timer actions.
package keymap

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// Action is a logical timer command.
type Action int

// Actions, in help display order.
const (
	Split Action = iota
	Undo
	Skip
	Reset
	Pause
	SwitchComparison
	Open
	Save
	Hide
	actionCount
)

var actionNames = [...]string{
	Split:            "split",
	Undo:             "undo",
	Skip:             "skip",
	Reset:            "reset",
	Pause:            "pause",
	SwitchComparison: "comparison",
	Open:             "open",
	Save:             "save",
	Hide:             "hide",
}

var actionHelp = [...]string{
	Split:            "split/start",
	Undo:             "undo",
	Skip:             "skip",
	Reset:            "reset",
	Pause:            "pause",
	SwitchComparison: "next comparison",
	Open:             "open",
	Save:             "save",
	Hide:             "hide comparison",
}

var (
	// ErrDuplicateKey is returned when one key is bound to two actions.
	ErrDuplicateKey = errors.New("key bound to more than one action")
	// ErrUnknownAction is returned for action names that do not exist.
	ErrUnknownAction = errors.New("unknown action")
)

func (a Action) String() string {
	if a < 0 || a >= actionCount {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// Actions returns every action in display order.
func Actions() []Action {
	out := make([]Action, 0, actionCount)
	for a := Action(0); a < actionCount; a++ {
		out = append(out, a)
	}
	return out
}

// ParseAction resolves an action by its config name.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a, n := range actionNames {
		if n == name {
			return Action(a), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Defaults returns the default bindings.
func Defaults() map[Action][]string {
	return map[Action][]string{
		Split:            {"space"},
		Undo:             {"u"},
		Skip:             {"s"},
		Reset:            {"r"},
		Pause:            {"p"},
		SwitchComparison: {"c"},
		Open:             {"o"},
		Save:             {"ctrl+s"},
		Hide:             {"h"},
	}
}

// Keymap resolves key names to actions.
type Keymap struct {
	byKey    map[string]Action
	bindings [actionCount]key.Binding
}

// New builds a keymap. Every key may be bound to a single action only.
func New(bindings map[Action][]string) (*Keymap, error) {
	km := &Keymap{byKey: map[string]Action{}}
	for _, a := range Actions() {
		keys := normalizeKeys(bindings[a])
		for _, k := range keys {
			if prev, ok := km.byKey[k]; ok {
				return nil, fmt.Errorf("%w: %q is bound to %s and %s", ErrDuplicateKey, k, prev, a)
			}
			km.byKey[k] = a
		}
		km.bindings[a] = key.NewBinding(
			key.WithKeys(keys...),
			key.WithHelp(strings.Join(keys, "/"), actionHelp[a]),
		)
		if len(keys) == 0 {
			km.bindings[a].SetEnabled(false)
		}
	}
	return km, nil
}

// FromNames builds a keymap from config-style bindings keyed by action name.
// Actions missing from names keep their default keys.
func FromNames(names map[string][]string) (*Keymap, error) {
	bindings := Defaults()
	for name, keys := range names {
		a, err := ParseAction(name)
		if err != nil {
			return nil, err
		}
		bindings[a] = keys
	}
	return New(bindings)
}

// Lookup returns the action bound to a key name such as "space" or "ctrl+s".
func (k *Keymap) Lookup(name string) (Action, bool) {
	a, ok := k.byKey[keyName(name)]
	return a, ok
}

// keyName canonicalizes a key name; a literal space is spelled "space".
func keyName(k string) string {
	if k == " " {
		return "space"
	}
	return strings.TrimSpace(k)
}

// Binding returns the help binding for an action.
func (k *Keymap) Binding(a Action) key.Binding {
	return k.bindings[a]
}

// ShortHelp implements help.KeyMap.
func (k *Keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.bindings[Split], k.bindings[Undo], k.bindings[Skip], k.bindings[Pause], k.bindings[Reset]}
}

// FullHelp implements help.KeyMap.
func (k *Keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.bindings[Split], k.bindings[Undo], k.bindings[Skip]},
		{k.bindings[Pause], k.bindings[Reset], k.bindings[SwitchComparison]},
		{k.bindings[Hide], k.bindings[Open], k.bindings[Save]},
	}
}

// Keys returns the bound key names in sorted order.
func (k *Keymap) Keys() []string {
	out := make([]string, 0, len(k.byKey))
	for name := range k.byKey {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := map[string]struct{}{}
	for _, k := range keys {
		k = keyName(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
