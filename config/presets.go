package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/opd-ai/etcher/frame"
)

// Preset names.
const (
	// PresetOptimal balances capacity and robustness: colour mode, 2 pixel
	// blocks at 720p.
	PresetOptimal = "optimal"
	// PresetParanoid favours surviving re-encoding: binary mode, 4 pixel
	// blocks at 720p.
	PresetParanoid = "paranoid"
	// PresetMaxEfficiency packs the most data per frame: colour mode,
	// single pixel blocks at 144p. Any lossy compression will corrupt it.
	PresetMaxEfficiency = "max-efficiency"
)

var (
	// ErrUnknownPreset indicates an unrecognized preset name.
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrUnknownResolution indicates an unrecognized resolution shortcut.
	ErrUnknownResolution = errors.New("unknown resolution")
)

var presets = map[string]Settings{
	PresetOptimal: {
		BlockSize: 2, Threads: 8, FPS: 10,
		Width: 1280, Height: 720,
		Mode: frame.ModeColor,
	},
	PresetParanoid: {
		BlockSize: 4, Threads: 8, FPS: 10,
		Width: 1280, Height: 720,
		Mode: frame.ModeBinary,
	},
	PresetMaxEfficiency: {
		BlockSize: 1, Threads: 8, FPS: 10,
		Width: 256, Height: 144,
		Mode: frame.ModeColor,
	},
}

var resolutions = map[string][2]int{
	"144p": {256, 144},
	"240p": {426, 240},
	"360p": {640, 360},
	"480p": {854, 480},
	"720p": {1280, 720},
}

// FromPreset returns the settings of a named preset.
func FromPreset(name string) (Settings, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", "-")
	if key == "maxefficiency" {
		key = PresetMaxEfficiency
	}
	s, ok := presets[key]
	if !ok {
		return Settings{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(Presets(), ", "))
	}
	return s, nil
}

// Presets lists the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolution maps a shortcut such as "720p" to its frame dimensions.
func Resolution(name string) (width, height int, err error) {
	dims, ok := resolutions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownResolution, name)
	}
	return dims[0], dims[1], nil
}
