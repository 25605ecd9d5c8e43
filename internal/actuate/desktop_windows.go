//go:build windows

package actuate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows         = user32.NewProc("EnumWindows")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procGetClassNameW       = user32.NewProc("GetClassNameW")
	procIsWindowVisible     = user32.NewProc("IsWindowVisible")
	procIsIconic            = user32.NewProc("IsIconic")
	procShowWindow          = user32.NewProc("ShowWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procSetCursorPos        = user32.NewProc("SetCursorPos")
	procMouseEvent          = user32.NewProc("mouse_event")
)

const (
	SW_RESTORE           = 9
	MOUSEEVENTF_LEFTDOWN = 0x0002
	MOUSEEVENTF_LEFTUP   = 0x0004
)

// user32Window drives the desktop through user32.
type user32Window struct {
	logger *slog.Logger
	debug  bool
}

func newPlatformWindow(logger *slog.Logger, debug bool) Window {
	return &user32Window{logger: logger, debug: debug}
}

func windowString(proc *windows.LazyProc, hwnd uintptr) string {
	buf := make([]uint16, 256)
	n, _, _ := proc.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

// EnumWindows callbacks are never freed, so one is shared by every Focus call.
var (
	enumOnce     sync.Once
	enumCallback uintptr
	enumMu       sync.Mutex
	enumMatch    string
	enumFound    uintptr
)

func enumProc(hwnd, _ uintptr) uintptr {
	if v, _, _ := procIsWindowVisible.Call(hwnd); v == 0 {
		return 1
	}
	if strings.Contains(windowString(procGetWindowTextW, hwnd), enumMatch) ||
		strings.Contains(windowString(procGetClassNameW, hwnd), enumMatch) {
		enumFound = hwnd
		return 0
	}
	return 1
}

func findWindow(match string) uintptr {
	enumOnce.Do(func() { enumCallback = windows.NewCallback(enumProc) })
	enumMu.Lock()
	defer enumMu.Unlock()
	enumMatch, enumFound = match, 0
	procEnumWindows.Call(enumCallback, 0)
	return enumFound
}

func (w *user32Window) Focus(_ context.Context, match string) error {
	found := findWindow(match)
	if found == 0 {
		return fmt.Errorf("%w: %q", ErrWindowNotFound, match)
	}
	if w.debug {
		w.logger.Debug("window matched", "title", windowString(procGetWindowTextW, found), "class", windowString(procGetClassNameW, found))
	}

	if iconic, _, _ := procIsIconic.Call(found); iconic != 0 {
		procShowWindow.Call(found, SW_RESTORE)
	}
	if r, _, err := procSetForegroundWindow.Call(found); r == 0 {
		return fmt.Errorf("SetForegroundWindow: %w", err)
	}
	return nil
}

func (w *user32Window) Click(_ context.Context, x, y int) error {
	if r, _, err := procSetCursorPos.Call(uintptr(x), uintptr(y)); r == 0 {
		return fmt.Errorf("SetCursorPos: %w", err)
	}
	procMouseEvent.Call(MOUSEEVENTF_LEFTDOWN, 0, 0, 0, 0)
	procMouseEvent.Call(MOUSEEVENTF_LEFTUP, 0, 0, 0, 0)
	return nil
}

func (w *user32Window) PressKey(context.Context, string) error {
	return errors.New("virtual keyboard required on windows")
}
