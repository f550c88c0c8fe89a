package logic

import (
	"fmt"
	"strings"
)

// TriggerKey is the key combination that starts a non-nested logic.
type TriggerKey struct {
	KeyCode    string    `json:"key_code" yaml:"key_code"`
	VirtualKey uint16    `json:"virtual_key" yaml:"virtual_key"`
	ScanCode   uint16    `json:"scan_code,omitempty" yaml:"scan_code,omitempty"`
	Location   string    `json:"location,omitempty" yaml:"location,omitempty"`
	Modifiers  Modifiers `json:"modifiers" yaml:"modifiers"`
}

// Combo is the identity of a trigger key. Two triggers collide when their
// combos are equal, regardless of scan code or location.
type Combo struct {
	VirtualKey uint16
	Modifiers  Modifiers
}

// Combo returns the identity of the trigger key.
func (k TriggerKey) Combo() Combo {
	return Combo{VirtualKey: k.VirtualKey, Modifiers: k.Modifiers}
}

// Matches reports whether a live key press with the given modifiers fires k.
func (k TriggerKey) Matches(vk uint16, mods Modifiers) bool {
	return k.VirtualKey == vk && k.Modifiers == mods
}

func (k TriggerKey) String() string {
	name := k.KeyCode
	if name == "" {
		name = KeyName(k.VirtualKey)
	}
	if k.Modifiers == 0 {
		return name
	}
	return k.Modifiers.String() + "+" + name
}

// ParseTriggerKey parses a hotkey string such as "Ctrl+Alt+F5" or "Shift+1".
// The last part is the key; every earlier part must be a modifier.
func ParseTriggerKey(s string) (TriggerKey, error) {
	parts := strings.Split(s, "+")
	if len(parts) == 0 || strings.TrimSpace(s) == "" {
		return TriggerKey{}, fmt.Errorf("empty hotkey")
	}

	var mods Modifiers
	for _, p := range parts[:len(parts)-1] {
		vk, err := VirtualKey(p)
		if err != nil {
			return TriggerKey{}, err
		}
		m := ModifierFor(vk)
		if m == 0 {
			return TriggerKey{}, fmt.Errorf("%q is not a modifier", strings.TrimSpace(p))
		}
		mods |= m
	}

	last := strings.TrimSpace(parts[len(parts)-1])
	vk, err := VirtualKey(last)
	if err != nil {
		return TriggerKey{}, err
	}
	return TriggerKey{
		KeyCode:    KeyName(vk),
		VirtualKey: vk,
		Modifiers:  mods,
	}, nil
}
