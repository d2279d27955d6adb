// Package config holds the encoding settings shared by every etcher
// component, the presets and resolution shortcuts offered by the CLI, and
// YAML loading of settings files.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/etcher/frame"
)

// Settings is the immutable configuration of one embed run. It is passed by
// value to every encode worker.
type Settings struct {
	BlockSize int        `yaml:"block_size"`
	Threads   int        `yaml:"threads"`
	Width     int        `yaml:"width"`
	Height    int        `yaml:"height"`
	FPS       float64    `yaml:"fps"`
	Mode      frame.Mode `yaml:"mode"`
}

// ContainerConfig selects the container backend and its codecs.
// Empty fields fall back to the backend defaults.
type ContainerConfig struct {
	Backend       string `yaml:"backend"`
	Codec         string `yaml:"codec"`
	FallbackCodec string `yaml:"fallback_codec"`
}

// File is the on-disk settings document.
//
//	preset: paranoid
//	resolution: 720p
//	threads: 4
//	container:
//	  backend: avi
type File struct {
	Preset     string          `yaml:"preset"`
	Resolution string          `yaml:"resolution"`
	Settings   `yaml:",inline"`
	Container  ContainerConfig `yaml:"container"`
}

// Default returns the settings used when nothing else is specified:
// 640x360 binary frames with 2 pixel blocks, 8 threads at 10 fps.
func Default() Settings {
	return Settings{
		BlockSize: 2,
		Threads:   8,
		Width:     640,
		Height:    360,
		FPS:       10,
		Mode:      frame.ModeBinary,
	}
}

// String returns a compact description of the settings.
func (s Settings) String() string {
	return fmt.Sprintf("%dx%d@%gfps block=%d threads=%d mode=%s",
		s.Width, s.Height, s.FPS, s.BlockSize, s.Threads, s.Mode)
}

// Load reads and parses a YAML settings file.
//
// A preset and a resolution, when present, are applied first; every other
// key then overrides the resulting values. The merged settings are validated.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML settings document. See Load.
func Parse(data []byte) (*File, error) {
	var head struct {
		Preset     string `yaml:"preset"`
		Resolution string `yaml:"resolution"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	base := Default()
	if head.Preset != "" {
		preset, err := FromPreset(head.Preset)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		base = preset
	}
	if head.Resolution != "" {
		w, h, err := Resolution(head.Resolution)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		base.Width, base.Height = w, h
	}

	file := File{Settings: base}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	file.Preset = strings.ToLower(strings.TrimSpace(file.Preset))

	if err := file.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &file, nil
}
