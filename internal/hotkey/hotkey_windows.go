//go:build windows

package hotkey

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procRegisterHotKey      = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey    = user32.NewProc("UnregisterHotKey")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	WM_QUIT   = 0x0012
	WM_HOTKEY = 0x0312
)

type msgT struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt_x    int32
	Pt_y    int32
}

// Listen installs the confirm and abort keys and calls handler for each
// press. With hook set, a low-level keyboard hook observes keys without
// taking them from other applications; otherwise RegisterHotKey reserves
// them system-wide. The returned stop function removes the keys.
func Listen(keys Keys, hook bool, handler func(Action), logger *slog.Logger, debug bool) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	if hook {
		return startLowLevelHook(keys, handler, logger, debug)
	}
	return registerHotkeys(keys, handler, logger, debug)
}

// messageLoop owns the OS thread that received the registrations.
type messageLoop struct {
	threadID uint32
	once     sync.Once
}

func (l *messageLoop) stop() {
	l.once.Do(func() {
		procPostThreadMessageW.Call(uintptr(l.threadID), WM_QUIT, 0, 0)
	})
}

func registerHotkeys(keys Keys, handler func(Action), logger *slog.Logger, debug bool) (func(), error) {
	type hotkeyDef struct {
		id     int
		action Action
		spec   string
		mod    uint32
		vk     uint32
	}
	var defs []hotkeyDef
	for _, b := range keys.bindings() {
		defs = append(defs, hotkeyDef{id: int(b.action), action: b.action, spec: b.spec})
	}

	loop := &messageLoop{}
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		loop.threadID = windows.GetCurrentThreadId()

		for i := range defs {
			spec, err := ParseSpec(defs[i].spec)
			if err != nil {
				errCh <- fmt.Errorf("invalid hotkey '%s': %w", defs[i].spec, err)
				return
			}
			defs[i].mod = spec.Mods
			defs[i].vk = spec.VK
			if debug {
				logger.Debug("hotkey parsed", "spec", defs[i].spec, "mod", fmt.Sprintf("0x%X", spec.Mods), "vk", fmt.Sprintf("0x%X", spec.VK))
			}
		}

		for i, d := range defs {
			r, _, _ := procRegisterHotKey.Call(0, uintptr(d.id), uintptr(d.mod), uintptr(d.vk))
			if r == 0 {
				for _, od := range defs[:i] {
					procUnregisterHotKey.Call(0, uintptr(od.id))
				}
				errCh <- fmt.Errorf("RegisterHotKey failed for '%s' (id=%d)", d.spec, d.id)
				return
			}
		}
		defer func() {
			for _, d := range defs {
				procUnregisterHotKey.Call(0, uintptr(d.id))
			}
		}()

		logger.Info("global hotkeys registered", "confirm", keys.Confirm, "abort", keys.Abort)
		errCh <- nil

		var msg msgT
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) == -1 {
				logger.Warn("GetMessageW failed; hotkey loop exiting")
				return
			}
			if ret == 0 {
				return
			}
			if msg.Message == WM_HOTKEY {
				action := Action(msg.WParam)
				if debug {
					logger.Debug("WM_HOTKEY received", "action", action)
				}
				handler(action)
			}
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
		return loop.stop, nil
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("timeout registering hotkeys")
	}
}

func startLowLevelHook(keys Keys, handler func(Action), logger *slog.Logger, debug bool) (func(), error) {
	type candidate struct {
		action Action
		mod    uint32
	}

	loop := &messageLoop{}
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		loop.threadID = windows.GetCurrentThreadId()

		lookup := make(map[uint32][]candidate)
		for _, b := range keys.bindings() {
			spec, err := ParseSpec(b.spec)
			if err != nil {
				errCh <- fmt.Errorf("invalid hotkey '%s': %w", b.spec, err)
				return
			}
			lookup[spec.VK] = append(lookup[spec.VK], candidate{action: b.action, mod: spec.Mods})
		}

		const (
			WH_KEYBOARD_LL = 13
			WM_KEYDOWN     = 0x0100
			WM_SYSKEYDOWN  = 0x0104
			LLKHF_INJECTED = 0x10
			VK_SHIFT       = 0x10
			VK_CONTROL     = 0x11
			VK_MENU        = 0x12
			VK_LWIN        = 0x5B
			VK_RWIN        = 0x5C
		)

		type KBDLLHOOKSTRUCT struct {
			vkCode      uint32
			scanCode    uint32
			flags       uint32
			time        uint32
			dwExtraInfo uintptr
		}

		down := func(vk uintptr) bool {
			st, _, _ := procGetAsyncKeyState.Call(vk)
			return st&0x8000 != 0
		}
		modsSatisfied := func(required uint32) bool {
			if required&ModCtrl != 0 && !down(VK_CONTROL) {
				return false
			}
			if required&ModAlt != 0 && !down(VK_MENU) {
				return false
			}
			if required&ModShift != 0 && !down(VK_SHIFT) {
				return false
			}
			if required&ModWin != 0 && !down(VK_LWIN) && !down(VK_RWIN) {
				return false
			}
			return true
		}

		callback := windows.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) >= 0 {
				msg := uint32(wParam)
				k := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
				// synthesized keys, including our own submit key, are ignored
				if k.flags&LLKHF_INJECTED == 0 && (msg == WM_KEYDOWN || msg == WM_SYSKEYDOWN) {
					for _, c := range lookup[k.vkCode] {
						if modsSatisfied(c.mod) {
							if debug {
								logger.Debug("hook keydown", "vk", fmt.Sprintf("0x%X", k.vkCode), "action", c.action)
							}
							go handler(c.action)
							break
						}
					}
				}
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(uintptr(WH_KEYBOARD_LL), callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("SetWindowsHookExW failed")
			return
		}
		defer procUnhookWindowsHookEx.Call(hook)

		logger.Info("low-level keyboard hook installed", "confirm", keys.Confirm, "abort", keys.Abort)
		errCh <- nil

		var msg msgT
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) == -1 || ret == 0 {
				break
			}
		}
		if debug {
			logger.Debug("low-level hook uninstalled")
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
		return loop.stop, nil
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("timeout installing low-level hook")
	}
}
