//go:build windows

package osutils

import (
	"fmt"
	"path/filepath"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procGetClientRect  = user32.NewProc("GetClientRect")
	procClientToScreen = user32.NewProc("ClientToScreen")
	procGetWindowText  = user32.NewProc("GetWindowTextW")
)

type point struct {
	X, Y int32
}

type rect struct {
	Left, Top, Right, Bottom int32
}

// Windows implements WindowService with user32 and kernel32.
type Windows struct{}

// NewWindowService returns the platform window service.
func NewWindowService() WindowService {
	return Windows{}
}

func (Windows) ForegroundWindow() (uintptr, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return 0, ErrNoForegroundWindow
	}
	return uintptr(hwnd), nil
}

func (Windows) WindowProcessID(hwnd uintptr) (uint32, error) {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid); err != nil {
		return 0, fmt.Errorf("GetWindowThreadProcessId: %w", err)
	}
	return pid, nil
}

// One EnumWindows callback serves every listing. enumMu guards the visitor.
var (
	enumMu       sync.Mutex
	enumVisit    func(hwnd windows.HWND)
	enumCallback = syscall.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if enumVisit != nil {
			enumVisit(hwnd)
		}
		return 1
	})
)

func (w Windows) ListProcesses(filter string) ([]ProcessInfo, error) {
	var out []ProcessInfo
	names := make(map[uint32]string)

	enumMu.Lock()
	defer enumMu.Unlock()
	enumVisit = func(hwnd windows.HWND) {
		if !windows.IsWindowVisible(hwnd) {
			return
		}
		title := windowText(hwnd)
		if title == "" {
			return
		}
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
			return
		}
		name, ok := names[pid]
		if !ok {
			name = processName(pid)
			names[pid] = name
		}
		p := ProcessInfo{PID: pid, Name: name, Title: title, HWND: uintptr(hwnd)}
		if matchFilter(p, filter) {
			out = append(out, p)
		}
	}
	defer func() { enumVisit = nil }()

	if err := windows.EnumWindows(enumCallback, nil); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	return out, nil
}

func (Windows) ClientRect(hwnd uintptr) (Rect, error) {
	var r rect
	ret, _, err := procGetClientRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return Rect{}, fmt.Errorf("GetClientRect: %v", err)
	}
	origin := point{X: r.Left, Y: r.Top}
	ret, _, err = procClientToScreen.Call(hwnd, uintptr(unsafe.Pointer(&origin)))
	if ret == 0 {
		return Rect{}, fmt.Errorf("ClientToScreen: %v", err)
	}
	return Rect{
		Left:   int(origin.X),
		Top:    int(origin.Y),
		Right:  int(origin.X + r.Right - r.Left),
		Bottom: int(origin.Y + r.Bottom - r.Top),
	}, nil
}

func windowText(hwnd windows.HWND) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetWindowText.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func processName(pid uint32) string {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}
