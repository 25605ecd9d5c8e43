package actuate

import (
	"fmt"

	"github.com/micmonay/keybd_event"

	"warpvoice/internal/hotkey"
)

var keybdCodes = map[string]int{
	"enter": keybd_event.VK_ENTER, "return": keybd_event.VK_ENTER,
	"space": keybd_event.VK_SPACE, "tab": keybd_event.VK_TAB,
	"esc": keybd_event.VK_ESC, "escape": keybd_event.VK_ESC,
	"a": keybd_event.VK_A, "b": keybd_event.VK_B, "c": keybd_event.VK_C, "d": keybd_event.VK_D,
	"e": keybd_event.VK_E, "f": keybd_event.VK_F, "g": keybd_event.VK_G, "h": keybd_event.VK_H,
	"i": keybd_event.VK_I, "j": keybd_event.VK_J, "k": keybd_event.VK_K, "l": keybd_event.VK_L,
	"m": keybd_event.VK_M, "n": keybd_event.VK_N, "o": keybd_event.VK_O, "p": keybd_event.VK_P,
	"q": keybd_event.VK_Q, "r": keybd_event.VK_R, "s": keybd_event.VK_S, "t": keybd_event.VK_T,
	"u": keybd_event.VK_U, "v": keybd_event.VK_V, "w": keybd_event.VK_W, "x": keybd_event.VK_X,
	"y": keybd_event.VK_Y, "z": keybd_event.VK_Z,
	"f1": keybd_event.VK_F1, "f2": keybd_event.VK_F2, "f3": keybd_event.VK_F3, "f4": keybd_event.VK_F4,
	"f5": keybd_event.VK_F5, "f6": keybd_event.VK_F6, "f7": keybd_event.VK_F7, "f8": keybd_event.VK_F8,
	"f9": keybd_event.VK_F9, "f10": keybd_event.VK_F10, "f11": keybd_event.VK_F11, "f12": keybd_event.VK_F12,
}

// VirtualKey presses one key, with modifiers, through a virtual keyboard.
type VirtualKey struct {
	kb keybd_event.KeyBonding
}

// NewVirtualKey creates the virtual keyboard for a key spec such as "enter"
// or "ctrl+enter".
func NewVirtualKey(spec string) (*VirtualKey, error) {
	s, err := hotkey.ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	code, ok := keybdCodes[s.Token]
	if !ok {
		return nil, fmt.Errorf("key %q has no virtual keyboard code", s.Token)
	}
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	kb.SetKeys(code)
	kb.HasCTRL(s.Mods&hotkey.ModCtrl != 0)
	kb.HasALT(s.Mods&hotkey.ModAlt != 0)
	kb.HasSHIFT(s.Mods&hotkey.ModShift != 0)
	return &VirtualKey{kb: kb}, nil
}

// Press presses and releases the key.
func (v *VirtualKey) Press() error {
	return v.kb.Launching()
}
