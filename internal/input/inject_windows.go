//go:build windows

package input

import (
	"fmt"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"

	"vmacro/internal/logic"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procMapVirtualKey    = user32.NewProc("MapVirtualKeyW")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
)

const (
	INPUT_MOUSE    = 0
	INPUT_KEYBOARD = 1

	KEYEVENTF_EXTENDEDKEY = 0x0001
	KEYEVENTF_KEYUP       = 0x0002
	KEYEVENTF_UNICODE     = 0x0004
	KEYEVENTF_SCANCODE    = 0x0008

	MOUSEEVENTF_MOVE       = 0x0001
	MOUSEEVENTF_LEFTDOWN   = 0x0002
	MOUSEEVENTF_LEFTUP     = 0x0004
	MOUSEEVENTF_RIGHTDOWN  = 0x0008
	MOUSEEVENTF_RIGHTUP    = 0x0010
	MOUSEEVENTF_MIDDLEDOWN = 0x0020
	MOUSEEVENTF_MIDDLEUP   = 0x0040
	MOUSEEVENTF_ABSOLUTE   = 0x8000

	MAPVK_VK_TO_VSC = 0
	SM_CXSCREEN     = 0
	SM_CYSCREEN     = 1
)

type MOUSEINPUT struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type KEYBDINPUT struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type mouseINPUT struct {
	Type uint32
	Mi   MOUSEINPUT
}

// keybdINPUT is padded to the size of the INPUT union, which MOUSEINPUT
// dominates on both 32 and 64 bit.
type keybdINPUT struct {
	Type uint32
	Ki   KEYBDINPUT
	_    [8]byte
}

// SendInput injects input with user32!SendInput.
type SendInput struct{}

// NewInjector returns the platform injector.
func NewInjector() Injector {
	return &SendInput{}
}

func send(ptr unsafe.Pointer, n int, size uintptr) error {
	ret, _, err := procSendInput.Call(uintptr(n), uintptr(ptr), size)
	if int(ret) != n {
		return fmt.Errorf("SendInput inserted %d of %d events: %w", ret, n, err)
	}
	return nil
}

func (s *SendInput) SendKey(k KeyStroke, pressed bool) error {
	scan := k.ScanCode
	if scan == 0 {
		r, _, _ := procMapVirtualKey.Call(uintptr(k.VirtualKey), MAPVK_VK_TO_VSC)
		scan = uint16(r)
	}
	in := keybdINPUT{Type: INPUT_KEYBOARD}
	if scan != 0 {
		in.Ki.WScan = scan
		in.Ki.DwFlags = KEYEVENTF_SCANCODE
	} else {
		in.Ki.WVk = k.VirtualKey
	}
	if k.Extended {
		in.Ki.DwFlags |= KEYEVENTF_EXTENDEDKEY
	}
	if !pressed {
		in.Ki.DwFlags |= KEYEVENTF_KEYUP
	}
	return send(unsafe.Pointer(&in), 1, unsafe.Sizeof(in))
}

func (s *SendInput) SendMouse(button logic.MouseButton, pressed bool) error {
	var flags uint32
	switch button {
	case logic.ButtonLeft:
		flags = pick(pressed, MOUSEEVENTF_LEFTDOWN, MOUSEEVENTF_LEFTUP)
	case logic.ButtonRight:
		flags = pick(pressed, MOUSEEVENTF_RIGHTDOWN, MOUSEEVENTF_RIGHTUP)
	case logic.ButtonMiddle:
		flags = pick(pressed, MOUSEEVENTF_MIDDLEDOWN, MOUSEEVENTF_MIDDLEUP)
	default:
		return fmt.Errorf("unknown mouse button %q", button)
	}
	in := mouseINPUT{Type: INPUT_MOUSE, Mi: MOUSEINPUT{DwFlags: flags}}
	return send(unsafe.Pointer(&in), 1, unsafe.Sizeof(in))
}

func (s *SendInput) MoveTo(x, y int) error {
	w, _, _ := procGetSystemMetrics.Call(SM_CXSCREEN)
	h, _, _ := procGetSystemMetrics.Call(SM_CYSCREEN)
	if w == 0 || h == 0 {
		return fmt.Errorf("screen metrics unavailable")
	}
	in := mouseINPUT{Type: INPUT_MOUSE, Mi: MOUSEINPUT{
		Dx:      int32(normalize(x, int(w))),
		Dy:      int32(normalize(y, int(h))),
		DwFlags: MOUSEEVENTF_MOVE | MOUSEEVENTF_ABSOLUTE,
	}}
	return send(unsafe.Pointer(&in), 1, unsafe.Sizeof(in))
}

func (s *SendInput) TypeText(text string) error {
	units := utf16.Encode([]rune(text))
	if len(units) == 0 {
		return nil
	}
	batch := make([]keybdINPUT, 0, len(units)*2)
	for _, u := range units {
		down := keybdINPUT{Type: INPUT_KEYBOARD, Ki: KEYBDINPUT{WScan: u, DwFlags: KEYEVENTF_UNICODE}}
		up := down
		up.Ki.DwFlags |= KEYEVENTF_KEYUP
		batch = append(batch, down, up)
	}
	return send(unsafe.Pointer(&batch[0]), len(batch), unsafe.Sizeof(batch[0]))
}

// normalize maps a pixel coordinate onto the 0..65535 absolute range.
func normalize(v, extent int) int {
	return (v*65536 + extent/2) / extent
}

func pick(pressed bool, down, up uint32) uint32 {
	if pressed {
		return down
	}
	return up
}
