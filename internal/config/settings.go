package config

import "netspeedtray/internal/position"

// Settings adapts a Config to the narrow settings interfaces of the
// position manager and the scheduler.
type Settings struct {
	cfg *Config
}

// Settings returns the adapter for c
func (c *Config) Settings() Settings { return Settings{cfg: c} }

func (s Settings) FreeMove() bool {
	mu.RLock()
	defer mu.RUnlock()
	return s.cfg.FreeMove
}

func (s Settings) KeepVisibleFullscreen() bool {
	mu.RLock()
	defer mu.RUnlock()
	return s.cfg.KeepVisibleFullscreen
}

func (s Settings) OverlayEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return s.cfg.OverlayEnabled
}

// SavedPosition returns the free-move position, if one was stored.
func (s Settings) SavedPosition() (x, y int, ok bool) {
	mu.RLock()
	defer mu.RUnlock()
	if s.cfg.PositionX == nil || s.cfg.PositionY == nil {
		return 0, 0, false
	}
	return *s.cfg.PositionX, *s.cfg.PositionY, true
}

// SetSavedPosition stores or, with nil arguments, clears the free-move position.
func (s Settings) SetSavedPosition(x, y *int) error {
	return s.cfg.Update(func(c *Config) {
		c.PositionX, c.PositionY = x, y
	})
}

func (s Settings) Offsets() position.Offsets {
	mu.RLock()
	defer mu.RUnlock()
	return position.Offsets{X: s.cfg.TrayOffsetX, Y: s.cfg.TrayOffsetY}
}

func (s Settings) SetOffsets(off position.Offsets) error {
	return s.cfg.Update(func(c *Config) {
		c.TrayOffsetX, c.TrayOffsetY = off.X, off.Y
	})
}
