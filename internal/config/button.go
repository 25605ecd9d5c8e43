package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"warpvoice/internal/jsonpath"
)

// ButtonFileName is the default button-position file in the home directory.
const ButtonFileName = ".warp_controller_config.json"

// ErrButtonPositionMissing is returned when the click target cannot be loaded.
var ErrButtonPositionMissing = errors.New("button position missing")

// ButtonPosition is the screen point of the record control.
type ButtonPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p ButtonPosition) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// ButtonConfigPath returns cfg.ButtonConfig, or the default file in the home directory.
func ButtonConfigPath(cfg *Config) (string, error) {
	if cfg.ButtonConfig != "" {
		return cfg.ButtonConfig, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ButtonFileName), nil
}

// LoadButtonPosition reads the {x, y} object found at objectPath inside the
// JSON file at path. Every failure wraps ErrButtonPositionMissing.
func LoadButtonPosition(path, objectPath string) (ButtonPosition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ButtonPosition{}, fmt.Errorf("%w: %w", ErrButtonPositionMissing, err)
	}
	var root interface{}
	if err := json.Unmarshal(b, &root); err != nil {
		return ButtonPosition{}, fmt.Errorf("%w: decode %s: %w", ErrButtonPositionMissing, path, err)
	}
	node, ok := jsonpath.Lookup(root, objectPath)
	if !ok {
		return ButtonPosition{}, fmt.Errorf("%w: %s not found in %s", ErrButtonPositionMissing, objectPath, path)
	}
	obj, ok := node.(map[string]interface{})
	if !ok {
		return ButtonPosition{}, fmt.Errorf("%w: %s is not an object", ErrButtonPositionMissing, objectPath)
	}
	x, okX := coordinate(obj["x"])
	y, okY := coordinate(obj["y"])
	if !okX || !okY {
		return ButtonPosition{}, fmt.Errorf("%w: %s needs numeric x and y", ErrButtonPositionMissing, objectPath)
	}
	return ButtonPosition{X: x, Y: y}, nil
}

func coordinate(v interface{}) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 || math.IsInf(f, 0) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// SaveButtonPosition stores pos at objectPath in the JSON file at path,
// keeping any other content of an existing file.
func SaveButtonPosition(path, objectPath string, pos ButtonPosition) error {
	root := map[string]interface{}{}
	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(b, &root); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if root == nil {
			root = map[string]interface{}{}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	value := map[string]interface{}{"x": pos.X, "y": pos.Y}
	if err := jsonpath.Set(root, objectPath, value); err != nil {
		return fmt.Errorf("set %s: %w", objectPath, err)
	}
	b, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
