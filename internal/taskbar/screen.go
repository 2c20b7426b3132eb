package taskbar

// FindScreen picks the screen that owns a taskbar.
//
// Layers are tried in order and the first hit wins: the monitor rect matches a
// screen's logical geometry exactly, the taskbar rect overlaps a screen's
// physical rect by the largest area, the rect's top-left corner lies inside a
// screen, and finally the primary screen.
func FindScreen(tbRect, monitorRect Rect, dpi float64, screens []Screen) (Screen, bool) {
	if len(screens) == 0 {
		return Screen{}, false
	}

	if !monitorRect.Empty() && dpi > 0 {
		want := FromRect(monitorRect.Logical(dpi))
		for _, s := range screens {
			if s.Geometry == want {
				return s, true
			}
		}
	}

	best, bestArea := -1, 0
	for i, s := range screens {
		ratio := s.DevicePixelRatio
		if ratio <= 0 {
			ratio = 1
		}
		area := s.Geometry.Physical(ratio).Intersect(tbRect).Area()
		if area > bestArea {
			best, bestArea = i, area
		}
	}
	if best >= 0 {
		return screens[best], true
	}

	for _, s := range screens {
		ratio := s.DevicePixelRatio
		if ratio <= 0 {
			ratio = 1
		}
		if s.Geometry.Physical(ratio).ContainsPoint(tbRect.Left, tbRect.Top) {
			return s, true
		}
	}

	return PrimaryScreen(screens)
}

// PrimaryScreen returns the screen flagged primary, else the first one.
func PrimaryScreen(screens []Screen) (Screen, bool) {
	for _, s := range screens {
		if s.Primary {
			return s, true
		}
	}
	if len(screens) > 0 {
		return screens[0], true
	}
	return Screen{}, false
}
