package logic

import (
	"fmt"
	"strings"
)

// Modifiers is the modifier bitmask stored with key items and trigger keys.
type Modifiers uint8

const (
	ModAlt   Modifiers = 1
	ModCtrl  Modifiers = 2
	ModShift Modifiers = 4
	ModWin   Modifiers = 8
)

// Has reports whether all bits of m2 are set.
func (m Modifiers) Has(m2 Modifiers) bool { return m&m2 == m2 }

// Names returns the modifier names in canonical Ctrl, Alt, Shift, Win order.
func (m Modifiers) Names() []string {
	var out []string
	if m.Has(ModCtrl) {
		out = append(out, "Ctrl")
	}
	if m.Has(ModAlt) {
		out = append(out, "Alt")
	}
	if m.Has(ModShift) {
		out = append(out, "Shift")
	}
	if m.Has(ModWin) {
		out = append(out, "Win")
	}
	return out
}

func (m Modifiers) String() string { return strings.Join(m.Names(), "+") }

// Windows virtual key codes referenced by name in the code base.
const (
	VKBack    uint16 = 0x08
	VKTab     uint16 = 0x09
	VKReturn  uint16 = 0x0D
	VKShift   uint16 = 0x10
	VKControl uint16 = 0x11
	VKMenu    uint16 = 0x12
	VKPause   uint16 = 0x13
	VKCapital uint16 = 0x14
	VKEscape  uint16 = 0x1B
	VKSpace   uint16 = 0x20
	VKLWin    uint16 = 0x5B
	VKRWin    uint16 = 0x5C
	VKLShift  uint16 = 0xA0
	VKRShift  uint16 = 0xA1
	VKLCtrl   uint16 = 0xA2
	VKRCtrl   uint16 = 0xA3
	VKLAlt    uint16 = 0xA4
	VKRAlt    uint16 = 0xA5
)

var namedKeys = map[uint16]string{
	VKBack:    "Backspace",
	VKTab:     "Tab",
	VKReturn:  "Enter",
	VKShift:   "Shift",
	VKControl: "Ctrl",
	VKMenu:    "Alt",
	VKPause:   "Pause",
	VKCapital: "CapsLock",
	VKEscape:  "Esc",
	VKSpace:   "Space",
	0x21:      "PageUp",
	0x22:      "PageDown",
	0x23:      "End",
	0x24:      "Home",
	0x25:      "Left",
	0x26:      "Up",
	0x27:      "Right",
	0x28:      "Down",
	0x2C:      "PrintScreen",
	0x2D:      "Insert",
	0x2E:      "Delete",
	VKLWin:    "Win",
	VKRWin:    "RWin",
	0x60:      "Num0",
	0x61:      "Num1",
	0x62:      "Num2",
	0x63:      "Num3",
	0x64:      "Num4",
	0x65:      "Num5",
	0x66:      "Num6",
	0x67:      "Num7",
	0x68:      "Num8",
	0x69:      "Num9",
	0x6A:      "Num*",
	0x6B:      "Num+",
	0x6D:      "Num-",
	0x6E:      "Num.",
	0x6F:      "Num/",
	0x91:      "ScrollLock",
	VKLShift:  "LShift",
	VKRShift:  "RShift",
	VKLCtrl:   "LCtrl",
	VKRCtrl:   "RCtrl",
	VKLAlt:    "LAlt",
	VKRAlt:    "RAlt",
	0xBA:      ";",
	0xBB:      "=",
	0xBC:      ",",
	0xBD:      "-",
	0xBE:      ".",
	0xBF:      "/",
	0xC0:      "`",
	0xDB:      "[",
	0xDC:      "\\",
	0xDD:      "]",
	0xDE:      "'",
}

var keyAliases = map[string]uint16{
	"CONTROL": VKControl,
	"MENU":    VKMenu,
	"OPTION":  VKMenu,
	"ESCAPE":  VKEscape,
	"RETURN":  VKReturn,
	"CMD":     VKLWin,
	"SUPER":   VKLWin,
	"DEL":     0x2E,
	"INS":     0x2D,
	"PGUP":    0x21,
	"PGDN":    0x22,
}

var keysByName map[string]uint16

func init() {
	keysByName = make(map[string]uint16, len(namedKeys)+len(keyAliases))
	for vk, name := range namedKeys {
		keysByName[strings.ToUpper(name)] = vk
	}
	for name, vk := range keyAliases {
		keysByName[name] = vk
	}
}

// KeyName returns a display name for a virtual key code.
func KeyName(vk uint16) string {
	if name, ok := namedKeys[vk]; ok {
		return name
	}
	switch {
	case vk >= 0x30 && vk <= 0x39, vk >= 0x41 && vk <= 0x5A:
		return string(rune(vk))
	case vk >= 0x70 && vk <= 0x87:
		return fmt.Sprintf("F%d", vk-0x6F)
	}
	return fmt.Sprintf("VK_%02X", vk)
}

// VirtualKey maps a key name (case-insensitive) back to its virtual key code.
func VirtualKey(name string) (uint16, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if vk, ok := keysByName[n]; ok {
		return vk, nil
	}
	if len(n) == 1 {
		c := n[0]
		if (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') {
			return uint16(c), nil
		}
	}
	if len(n) >= 2 && n[0] == 'F' {
		var f int
		if _, err := fmt.Sscanf(n[1:], "%d", &f); err == nil && f >= 1 && f <= 24 {
			return uint16(0x6F + f), nil
		}
	}
	if strings.HasPrefix(n, "VK_") {
		var vk uint16
		if _, err := fmt.Sscanf(n[3:], "%X", &vk); err == nil {
			return vk, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

// IsModifierKey reports whether vk is one of the modifier keys itself.
func IsModifierKey(vk uint16) bool {
	switch vk {
	case VKShift, VKControl, VKMenu, VKLWin, VKRWin, VKLShift, VKRShift, VKLCtrl, VKRCtrl, VKLAlt, VKRAlt:
		return true
	}
	return false
}

// ModifierFor returns the modifier bit corresponding to a modifier key, or 0.
func ModifierFor(vk uint16) Modifiers {
	switch vk {
	case VKControl, VKLCtrl, VKRCtrl:
		return ModCtrl
	case VKMenu, VKLAlt, VKRAlt:
		return ModAlt
	case VKShift, VKLShift, VKRShift:
		return ModShift
	case VKLWin, VKRWin:
		return ModWin
	}
	return 0
}
