// Package hotkey delivers the confirm and abort keys to the controller: as
// global hotkeys on Windows and from the controlling terminal elsewhere.
package hotkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Modifier masks, matching the Windows MOD_* values.
const (
	ModAlt   uint32 = 0x0001
	ModCtrl  uint32 = 0x0002
	ModShift uint32 = 0x0004
	ModWin   uint32 = 0x0008
)

// Virtual-key codes not covered by letters and digits.
const (
	VK_BACK     = 0x08
	VK_TAB      = 0x09
	VK_RETURN   = 0x0D
	VK_ESCAPE   = 0x1B
	VK_SPACE    = 0x20
	VK_NUMPAD0  = 0x60
	VK_ADD      = 0x6B
	VK_SUBTRACT = 0x6D
	VK_F1       = 0x70
)

// ErrNoTerminal is returned by Listen when no terminal key source exists.
var ErrNoTerminal = errors.New("stdin is not a terminal")

// Action is what a key press asks the controller to do.
type Action int

const (
	ActionConfirm Action = iota + 1
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionConfirm:
		return "confirm"
	case ActionAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Keys names the key bound to each action, e.g. "space" and "esc".
type Keys struct {
	Confirm string
	Abort   string
}

func (k Keys) bindings() []binding {
	return []binding{
		{action: ActionConfirm, spec: k.Confirm},
		{action: ActionAbort, spec: k.Abort},
	}
}

type binding struct {
	action Action
	spec   string
}

// Spec is a parsed key specification.
type Spec struct {
	Mods uint32
	VK   uint32
	// Token is the lower-cased key name without modifiers.
	Token string
}

// Validate reports whether every key in k parses.
func (k Keys) Validate() error {
	for _, b := range k.bindings() {
		if _, err := ParseSpec(b.spec); err != nil {
			return fmt.Errorf("%s key: %w", b.action, err)
		}
	}
	return nil
}

var namedKeys = map[string]uint32{
	"esc":       VK_ESCAPE,
	"escape":    VK_ESCAPE,
	"space":     VK_SPACE,
	"enter":     VK_RETURN,
	"return":    VK_RETURN,
	"tab":       VK_TAB,
	"backspace": VK_BACK,
	"insert":    0x2D,
	"delete":    0x2E,
	"home":      0x24,
	"end":       0x23,
	"pageup":    0x21,
	"pagedown":  0x22,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"add":       VK_ADD,
	"plus":      VK_ADD,
	"kpadd":     VK_ADD,
	"subtract":  VK_SUBTRACT,
	"minus":     VK_SUBTRACT,
}

// ParseSpec accepts strings like "space", "esc", "ctrl+shift+F1", "alt+q".
func ParseSpec(s string) (Spec, error) {
	if strings.TrimSpace(s) == "" {
		return Spec{}, fmt.Errorf("empty key")
	}
	parts := strings.Split(s, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(strings.ToLower(parts[i]))
	}

	var spec Spec
	spec.Token = parts[len(parts)-1]
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "alt", "menu":
			spec.Mods |= ModAlt
		case "ctrl", "control":
			spec.Mods |= ModCtrl
		case "shift":
			spec.Mods |= ModShift
		case "win", "meta", "super":
			spec.Mods |= ModWin
		default:
			return Spec{}, fmt.Errorf("unsupported modifier %q in %q", p, s)
		}
	}

	tok := spec.Token
	if len(tok) == 1 {
		ch := tok[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			spec.VK = uint32(ch - 'a' + 'A')
			return spec, nil
		case ch >= '0' && ch <= '9':
			spec.VK = uint32(ch)
			return spec, nil
		}
	}
	if v, ok := namedKeys[tok]; ok {
		spec.VK = v
		return spec, nil
	}
	if n, ok := numbered(tok, "f"); ok && n >= 1 && n <= 24 {
		spec.VK = VK_F1 + uint32(n-1)
		return spec, nil
	}
	for _, prefix := range []string{"numpad", "num", "kp"} {
		if n, ok := numbered(tok, prefix); ok && n >= 0 && n <= 9 {
			spec.VK = VK_NUMPAD0 + uint32(n)
			return spec, nil
		}
	}
	return Spec{}, fmt.Errorf("unsupported key token: %s", s)
}

func numbered(tok, prefix string) (int, bool) {
	if !strings.HasPrefix(tok, prefix) || len(tok) == len(prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(tok, prefix))
	return n, err == nil
}

// MatchesTerminal reports whether one read from a terminal in cbreak mode is
// this key. Only plain keys and ctrl+letter can be read this way.
func (s Spec) MatchesTerminal(chunk []byte) bool {
	if len(chunk) == 0 {
		return false
	}
	switch s.Mods {
	case 0:
	case ModCtrl:
		if len(s.Token) == 1 && s.Token[0] >= 'a' && s.Token[0] <= 'z' {
			return len(chunk) == 1 && chunk[0] == s.Token[0]&0x1f
		}
		return false
	default:
		return false
	}

	switch s.VK {
	case VK_ESCAPE:
		// a lone ESC; longer chunks are escape sequences such as arrow keys
		return len(chunk) == 1 && chunk[0] == 0x1b
	case VK_SPACE:
		return chunk[0] == ' '
	case VK_RETURN:
		return chunk[0] == '\r' || chunk[0] == '\n'
	case VK_TAB:
		return chunk[0] == '\t'
	case VK_BACK:
		return chunk[0] == 0x7f || chunk[0] == 0x08
	}
	if len(s.Token) == 1 {
		return strings.EqualFold(string(chunk[:1]), s.Token)
	}
	return false
}
