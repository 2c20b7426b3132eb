package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// AppName names the per-user config directory.
const AppName = "NetSpeedTray"

// Limits enforced by Validate.
const (
	MinUpdateRate  = 0.1
	MaxUpdateRate  = 10.0
	MinKeepData    = 1
	MaxKeepData    = 365
	MinOpacity     = 0.2
	MaxDecimals    = 2
	MaxTrayOffset  = 500
	SpeedUnitBits  = "bits"
	SpeedUnitBytes = "bytes"
)

// Config holds all application settings
type Config struct {
	FreeMove              bool     `json:"free_move"`
	PositionX             *int     `json:"position_x"`
	PositionY             *int     `json:"position_y"`
	TrayOffsetX           int      `json:"tray_offset_x"`
	TrayOffsetY           int      `json:"tray_offset_y"`
	KeepVisibleFullscreen bool     `json:"keep_visible_fullscreen"`
	OverlayEnabled        bool     `json:"overlay_enabled"`
	OverlayOpacity        float64  `json:"overlay_opacity"`
	UpdateRate            float64  `json:"update_rate"` // seconds
	KeepData              int      `json:"keep_data"`   // days
	ExcludedInterfaces    []string `json:"excluded_interfaces"`
	SpeedUnit             string   `json:"speed_unit"` // "bits" or "bytes"
	DecimalPlaces         int      `json:"decimal_places"`
	HistoryEnabled        bool     `json:"history_enabled"`
	Paused                bool     `json:"paused"`
	StartWithWindows      bool     `json:"start_with_windows"`
}

// DefaultExclusions are substrings of adapter names that are never counted.
var DefaultExclusions = []string{
	"loopback", "teredo", "isatap", "bluetooth", "vpn", "virtual", "vmware", "vbox",
}

var (
	instance   *Config
	once       sync.Once
	mu         sync.RWMutex
	configPath string
	// lastWritten is what Save last put on disk, so the watcher can tell our
	// own writes from external edits.
	lastWritten []byte
)

// Default returns the default configuration
func Default() *Config {
	return &Config{
		TrayOffsetX:        10,
		TrayOffsetY:        10,
		OverlayEnabled:     true,
		OverlayOpacity:     0.9,
		UpdateRate:         1.0,
		KeepData:           30,
		ExcludedInterfaces: slices.Clone(DefaultExclusions),
		SpeedUnit:          SpeedUnitBits,
		DecimalPlaces:      2,
		HistoryEnabled:     true,
		StartWithWindows:   true,
	}
}

// Get returns the singleton config instance
func Get() *Config {
	once.Do(func() {
		instance = Default()
		_ = instance.Load()
	})
	return instance
}

// SetPath overrides the config file location and drops the loaded singleton.
// An empty path restores the platform default.
func SetPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	configPath = path
	instance = nil
	once = sync.Once{}
	lastWritten = nil
}

// Path returns the config file path, creating its directory.
func Path() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	return getConfigPath()
}

// Dir returns the per-user application directory that also holds the
// history database and log file.
func Dir() (string, error) {
	p, err := Path()
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}

// getConfigPath returns the path to the config file.
//   - Windows: %APPDATA%\NetSpeedTray\config.json
//   - others:  $XDG_CONFIG_HOME/netspeedtray/config.json
func getConfigPath() (string, error) {
	if configPath != "" {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return "", err
		}
		return configPath, nil
	}

	var dir string
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		dir = filepath.Join(appData, AppName)

	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		dir = filepath.Join(configHome, strings.ToLower(AppName))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	configPath = filepath.Join(dir, "config.json")
	return configPath, nil
}

// Load reads the config from disk. A missing file keeps the defaults.
// Out-of-range values are clamped.
func (c *Config) Load() error {
	mu.Lock()
	defer mu.Unlock()

	path, err := getConfigPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	_ = c.validate()
	return nil
}

// Reload replaces c with the file contents. On a parse error c is left
// untouched. changed is false when the file holds what we last saved.
func (c *Config) Reload() (changed bool, err error) {
	mu.Lock()
	defer mu.Unlock()

	path, err := getConfigPath()
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if lastWritten != nil && bytes.Equal(data, lastWritten) {
		return false, nil
	}

	fresh := Default()
	if err := json.Unmarshal(data, fresh); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	_ = fresh.validate()
	*c = *fresh
	return true, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	mu.Lock()
	defer mu.Unlock()
	return c.save()
}

func (c *Config) save() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	lastWritten = data
	return nil
}

// Update applies fn under the config lock and saves the result.
func (c *Config) Update(fn func(c *Config)) error {
	mu.Lock()
	defer mu.Unlock()
	fn(c)
	_ = c.validate()
	return c.save()
}

// Snapshot returns a copy safe to read without the lock.
func (c *Config) Snapshot() Config {
	mu.RLock()
	defer mu.RUnlock()
	cp := *c
	cp.ExcludedInterfaces = slices.Clone(c.ExcludedInterfaces)
	return cp
}

// Validate clamps out-of-range values and reports what it changed.
func (c *Config) Validate() error {
	mu.Lock()
	defer mu.Unlock()
	return c.validate()
}

func (c *Config) validate() error {
	var errs []error
	fix := func(field string, from, to any) {
		errs = append(errs, fmt.Errorf("%s: %v out of range, using %v", field, from, to))
	}

	if c.UpdateRate < MinUpdateRate || c.UpdateRate > MaxUpdateRate {
		to := min(max(c.UpdateRate, MinUpdateRate), MaxUpdateRate)
		fix("update_rate", c.UpdateRate, to)
		c.UpdateRate = to
	}
	if c.KeepData < MinKeepData || c.KeepData > MaxKeepData {
		to := min(max(c.KeepData, MinKeepData), MaxKeepData)
		fix("keep_data", c.KeepData, to)
		c.KeepData = to
	}
	if c.OverlayOpacity < MinOpacity || c.OverlayOpacity > 1 {
		to := min(max(c.OverlayOpacity, MinOpacity), 1)
		fix("overlay_opacity", c.OverlayOpacity, to)
		c.OverlayOpacity = to
	}
	if c.DecimalPlaces < 0 || c.DecimalPlaces > MaxDecimals {
		to := min(max(c.DecimalPlaces, 0), MaxDecimals)
		fix("decimal_places", c.DecimalPlaces, to)
		c.DecimalPlaces = to
	}
	if c.TrayOffsetX < 0 || c.TrayOffsetX > MaxTrayOffset {
		to := min(max(c.TrayOffsetX, 0), MaxTrayOffset)
		fix("tray_offset_x", c.TrayOffsetX, to)
		c.TrayOffsetX = to
	}
	if c.TrayOffsetY < 0 || c.TrayOffsetY > MaxTrayOffset {
		to := min(max(c.TrayOffsetY, 0), MaxTrayOffset)
		fix("tray_offset_y", c.TrayOffsetY, to)
		c.TrayOffsetY = to
	}
	if c.SpeedUnit != SpeedUnitBits && c.SpeedUnit != SpeedUnitBytes {
		fix("speed_unit", c.SpeedUnit, SpeedUnitBits)
		c.SpeedUnit = SpeedUnitBits
	}
	if (c.PositionX == nil) != (c.PositionY == nil) {
		fix("position", "half set", "unset")
		c.PositionX, c.PositionY = nil, nil
	}
	if c.ExcludedInterfaces == nil {
		c.ExcludedInterfaces = slices.Clone(DefaultExclusions)
	}
	return errors.Join(errs...)
}

// SetFreeMove toggles free-move mode and saves
func (c *Config) SetFreeMove(on bool) error {
	return c.Update(func(c *Config) { c.FreeMove = on })
}

// ToggleOverlay toggles overlay visibility
func (c *Config) ToggleOverlay() error {
	return c.Update(func(c *Config) { c.OverlayEnabled = !c.OverlayEnabled })
}

// SetStartWithWindows persists the run-at-logon choice
func (c *Config) SetStartWithWindows(on bool) error {
	return c.Update(func(c *Config) { c.StartWithWindows = on })
}

// SetPaused persists the pause state
func (c *Config) SetPaused(paused bool) error {
	return c.Update(func(c *Config) { c.Paused = paused })
}
