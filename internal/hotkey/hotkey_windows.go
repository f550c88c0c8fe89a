//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"vmacro/internal/logic"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetKeyState         = user32.NewProc("GetKeyState")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	WM_QUIT        = 0x0012
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105

	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MBUTTONDOWN = 0x0207
	WM_MBUTTONUP   = 0x0208
	WM_XBUTTONDOWN = 0x020B
	WM_XBUTTONUP   = 0x020C

	LLKHF_INJECTED = 0x10
	LLMHF_INJECTED = 0x01
)

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MSLLHOOKSTRUCT struct {
	Point       struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// The LL hook procedures are process-wide, so only one Manager can own them.
var (
	hookMu          sync.Mutex
	instanceManager *Manager
	keyboardHook    uintptr
	mouseHook       uintptr
	keyboardProc    = syscall.NewCallback(keyboardHookPtr)
	mouseProc       = syscall.NewCallback(mouseHookPtr)
)

func (m *Manager) startPlatform() error {
	hookMu.Lock()
	if instanceManager != nil {
		hookMu.Unlock()
		return fmt.Errorf("global hooks already installed")
	}
	instanceManager = m
	hookMu.Unlock()

	started := make(chan error, 1)
	var threadID uint32

	// Hooks must be registered in the same thread that runs the message loop
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		threadID = windows.GetCurrentThreadId()
		hMod, _, _ := procGetModuleHandle.Call(0)

		var err error
		keyboardHook, _, err = procSetWindowsHookEx.Call(WH_KEYBOARD_LL, keyboardProc, hMod, 0)
		if keyboardHook == 0 {
			started <- fmt.Errorf("set keyboard hook: %w", err)
			return
		}

		mouseHook, _, err = procSetWindowsHookEx.Call(WH_MOUSE_LL, mouseProc, hMod, 0)
		if mouseHook == 0 {
			procUnhookWindowsHookEx.Call(keyboardHook)
			started <- fmt.Errorf("set mouse hook: %w", err)
			return
		}

		m.logger.Info("global hooks started")
		started <- nil

		var msg struct {
			Hwnd    syscall.Handle
			Message uint32
			Wparam  uintptr
			Lparam  uintptr
			Time    uint32
			Pt      struct{ X, Y int32 }
		}

		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
		}

		procUnhookWindowsHookEx.Call(keyboardHook)
		procUnhookWindowsHookEx.Call(mouseHook)
		m.logger.Info("global hooks stopped")
	}()

	if err := <-started; err != nil {
		hookMu.Lock()
		instanceManager = nil
		hookMu.Unlock()
		return err
	}

	m.mu.Lock()
	m.stopPlatform = func() {
		procPostThreadMessage.Call(uintptr(threadID), WM_QUIT, 0, 0)
		hookMu.Lock()
		instanceManager = nil
		hookMu.Unlock()
	}
	m.mu.Unlock()
	return nil
}

func keyDown(vk uint16) bool {
	ret, _, _ := procGetKeyState.Call(uintptr(vk))
	return ret&0x8000 != 0
}

func currentModifiers() logic.Modifiers {
	var mods logic.Modifiers
	if keyDown(logic.VKControl) {
		mods |= logic.ModCtrl
	}
	if keyDown(logic.VKMenu) {
		mods |= logic.ModAlt
	}
	if keyDown(logic.VKShift) {
		mods |= logic.ModShift
	}
	if keyDown(logic.VKLWin) || keyDown(logic.VKRWin) {
		mods |= logic.ModWin
	}
	return mods
}

func currentManager() *Manager {
	hookMu.Lock()
	defer hookMu.Unlock()
	return instanceManager
}

func keyboardHookPtr(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if m := currentManager(); nCode == 0 && m != nil {
		kbd := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		m.DispatchKey(KeyEvent{
			VirtualKey: uint16(kbd.VkCode),
			ScanCode:   uint16(kbd.ScanCode),
			Modifiers:  currentModifiers(),
			Pressed:    wParam == WM_KEYDOWN || wParam == WM_SYSKEYDOWN,
			Injected:   kbd.Flags&LLKHF_INJECTED != 0,
			Time:       time.Now(),
		})
	}
	ret, _, _ := procCallNextHookEx.Call(keyboardHook, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseHookPtr(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if m := currentManager(); nCode == 0 && m != nil {
		ms := (*MSLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		ev := MouseEvent{
			X:        int(ms.Point.X),
			Y:        int(ms.Point.Y),
			Injected: ms.Flags&LLMHF_INJECTED != 0,
			Time:     time.Now(),
		}

		switch wParam {
		case WM_LBUTTONDOWN:
			ev.Button, ev.Pressed = logic.ButtonLeft, true
		case WM_LBUTTONUP:
			ev.Button = logic.ButtonLeft
		case WM_RBUTTONDOWN:
			ev.Button, ev.Pressed = logic.ButtonRight, true
		case WM_RBUTTONUP:
			ev.Button = logic.ButtonRight
		case WM_MBUTTONDOWN:
			ev.Button, ev.Pressed = logic.ButtonMiddle, true
		case WM_MBUTTONUP:
			ev.Button = logic.ButtonMiddle
		case WM_XBUTTONDOWN, WM_XBUTTONUP:
			if !ev.Injected {
				btnName := "MOUSE5"
				if (ms.MouseData >> 16) == 1 {
					btnName = "MOUSE4"
				}
				m.UpdateState(btnName, wParam == WM_XBUTTONDOWN)
			}
		}

		if ev.Button != "" {
			m.DispatchMouse(ev)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(mouseHook, uintptr(nCode), wParam, lParam)
	return ret
}
