// ABOUTME: Settings loading with global, project, and explicit YAML files merged in order
// ABOUTME: Converts the effective settings into engine construction parameters

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mauromedda/overlay-go/pkg/overlay"
)

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// Settings holds the merged configuration.
type Settings struct {
	Debug                   *bool         `yaml:"debug,omitempty"`
	TickInterval            time.Duration `yaml:"tick_interval,omitempty"`
	PresentationToleranceUS int64         `yaml:"presentation_tolerance_us,omitempty"`
	DropWindowUS            int64         `yaml:"drop_window_us,omitempty"`
	StopTimeout             time.Duration `yaml:"stop_timeout,omitempty"`
	QueueDepth              int           `yaml:"queue_depth,omitempty"`
	Surface                 Dimensions    `yaml:"surface,omitempty"`
	Display                 Dimensions    `yaml:"display,omitempty"`
}

// DebugEnabled reports the effective debug flag.
func (s *Settings) DebugEnabled() bool {
	return s != nil && s.Debug != nil && *s.Debug
}

// Engine converts the settings into an overlay.Config. Zero fields keep
// the engine defaults.
func (s *Settings) Engine() overlay.Config {
	if s == nil {
		return overlay.Config{}
	}
	return overlay.Config{
		Surface:               overlay.Size{Width: s.Surface.Width, Height: s.Surface.Height},
		Display:               overlay.Size{Width: s.Display.Width, Height: s.Display.Height},
		TickInterval:          s.TickInterval,
		PresentationTolerance: s.PresentationToleranceUS,
		DropWindow:            s.DropWindowUS,
		StopTimeout:           s.StopTimeout,
		QueueDepth:            s.QueueDepth,
		Debug:                 s.DebugEnabled(),
	}
}

// Load reads and merges the global, project-local, and explicit settings
// files in that order. Missing global/project files are skipped; a missing
// explicit file is an error.
func Load(projectRoot, explicit string) (*Settings, error) {
	merged := &Settings{}
	for _, path := range []string{GlobalConfigFile(), ProjectConfigFile(projectRoot)} {
		s, err := LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merged = merge(merged, s)
	}

	if explicit != "" {
		s, err := LoadFile(explicit)
		if err != nil {
			return nil, err
		}
		merged = merge(merged, s)
	}
	return merged, nil
}

// LoadFile reads one YAML settings file.
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch {
	case s.TickInterval < 0:
		return errors.New("tick_interval must not be negative")
	case s.StopTimeout < 0:
		return errors.New("stop_timeout must not be negative")
	case s.PresentationToleranceUS < 0, s.DropWindowUS < 0:
		return errors.New("windows must not be negative")
	case s.QueueDepth < 0:
		return errors.New("queue_depth must not be negative")
	case s.Surface.Width < 0, s.Surface.Height < 0, s.Display.Width < 0, s.Display.Height < 0:
		return errors.New("dimensions must not be negative")
	}
	return nil
}

// merge overlays non-zero values of top onto base.
func merge(base, top *Settings) *Settings {
	if base == nil {
		base = &Settings{}
	}
	if top == nil {
		return base
	}

	result := *base
	if top.Debug != nil {
		v := *top.Debug
		result.Debug = &v
	}
	if top.TickInterval != 0 {
		result.TickInterval = top.TickInterval
	}
	if top.PresentationToleranceUS != 0 {
		result.PresentationToleranceUS = top.PresentationToleranceUS
	}
	if top.DropWindowUS != 0 {
		result.DropWindowUS = top.DropWindowUS
	}
	if top.StopTimeout != 0 {
		result.StopTimeout = top.StopTimeout
	}
	if top.QueueDepth != 0 {
		result.QueueDepth = top.QueueDepth
	}
	if top.Surface != (Dimensions{}) {
		result.Surface = top.Surface
	}
	if top.Display != (Dimensions{}) {
		result.Display = top.Display
	}
	return &result
}
