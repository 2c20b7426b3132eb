// Package assets draws the application and tray icons.
package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/nfnt/resize"
)

// Icon sizes
const (
	TraySize = 32
	AppSize  = 256

	// supersample factor before downscaling
	oversample = 4
)

var (
	bgColor       = color.RGBA{32, 33, 35, 255}
	uploadColor   = color.RGBA{234, 179, 8, 255}
	downloadColor = color.RGBA{88, 140, 236, 255}
	pausedColor   = color.RGBA{120, 120, 120, 255}
)

var (
	once    sync.Once
	tray    fyne.Resource
	app     fyne.Resource
	paused  fyne.Resource
	loadErr error
)

func load() {
	once.Do(func() {
		var data []byte
		if data, loadErr = PNG(TraySize, false); loadErr != nil {
			return
		}
		tray = fyne.NewStaticResource("tray.png", data)
		if data, loadErr = PNG(TraySize, true); loadErr != nil {
			return
		}
		paused = fyne.NewStaticResource("tray_paused.png", data)
		if data, loadErr = PNG(AppSize, false); loadErr != nil {
			return
		}
		app = fyne.NewStaticResource("app.png", data)
	})
}

// TrayIcon returns the system tray icon resource
func TrayIcon() fyne.Resource {
	load()
	return tray
}

// PausedTrayIcon is the greyed tray icon used while monitoring is paused
func PausedTrayIcon() fyne.Resource {
	load()
	return paused
}

// AppIcon returns the application icon resource
func AppIcon() fyne.Resource {
	load()
	return app
}

// PNG encodes the icon at size pixels.
func PNG(size int, greyed bool) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid icon size %d", size)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, Render(size, greyed)); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

// Render draws the icon: an up arrow and a down arrow on a rounded tile.
func Render(size int, greyed bool) image.Image {
	n := size * oversample
	img := image.NewRGBA(image.Rect(0, 0, n, n))

	s := float64(n) / 64
	fillRoundedRect(img, 2*s, 2*s, 60*s, 60*s, 12*s, bgColor)

	up, down := uploadColor, downloadColor
	if greyed {
		up, down = pausedColor, pausedColor
	}
	drawArrow(img, 14*s, 12*s, 16*s, 40*s, true, up)
	drawArrow(img, 34*s, 12*s, 16*s, 40*s, false, down)

	return resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
}

// drawArrow draws a shaft with a triangular head pointing up or down inside
// the w*h box at (x, y).
func drawArrow(img *image.RGBA, x, y, w, h float64, pointUp bool, c color.Color) {
	head := w * 0.9
	shaftW := w * 0.4
	shaftX := x + (w-shaftW)/2

	if pointUp {
		fillRoundedRect(img, shaftX, y+head-1, shaftW, h-head+1, shaftW/4, c)
		fillTriangle(img, x, y+head, x+w/2, y, x+w, y+head, c)
		return
	}
	fillRoundedRect(img, shaftX, y, shaftW, h-head+1, shaftW/4, c)
	fillTriangle(img, x, y+h-head, x+w/2, y+h, x+w, y+h-head, c)
}

func fillRoundedRect(img *image.RGBA, rx, ry, rw, rh, radius float64, c color.Color) {
	b := img.Bounds()
	for py := max(b.Min.Y, int(ry)); py < min(b.Max.Y, int(math.Ceil(ry+rh))); py++ {
		for px := max(b.Min.X, int(rx)); px < min(b.Max.X, int(math.Ceil(rx+rw))); px++ {
			if inRoundedRect(float64(px)+0.5, float64(py)+0.5, rx, ry, rw, rh, radius) {
				img.Set(px, py, c)
			}
		}
	}
}

func inRoundedRect(px, py, rx, ry, rw, rh, radius float64) bool {
	if px < rx || px >= rx+rw || py < ry || py >= ry+rh {
		return false
	}
	radius = min(radius, rw/2, rh/2)

	// nearest corner centre, if the point is in a corner square
	cx, cy := px, py
	switch {
	case px < rx+radius:
		cx = rx + radius
	case px > rx+rw-radius:
		cx = rx + rw - radius
	}
	switch {
	case py < ry+radius:
		cy = ry + radius
	case py > ry+rh-radius:
		cy = ry + rh - radius
	}
	if cx == px || cy == py {
		return true
	}
	return math.Hypot(px-cx, py-cy) <= radius
}

func fillTriangle(img *image.RGBA, x1, y1, x2, y2, x3, y3 float64, c color.Color) {
	minX, maxX := int(min(x1, x2, x3)), int(math.Ceil(max(x1, x2, x3)))
	minY, maxY := int(min(y1, y2, y3)), int(math.Ceil(max(y1, y2, y3)))
	b := img.Bounds()
	for py := max(minY, b.Min.Y); py < min(maxY, b.Max.Y); py++ {
		for px := max(minX, b.Min.X); px < min(maxX, b.Max.X); px++ {
			if inTriangle(float64(px)+0.5, float64(py)+0.5, x1, y1, x2, y2, x3, y3) {
				img.Set(px, py, c)
			}
		}
	}
}

func inTriangle(px, py, x1, y1, x2, y2, x3, y3 float64) bool {
	d1 := edgeSide(px, py, x1, y1, x2, y2)
	d2 := edgeSide(px, py, x2, y2, x3, y3)
	d3 := edgeSide(px, py, x3, y3, x1, y1)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

func edgeSide(px, py, ax, ay, bx, by float64) float64 {
	return (px-bx)*(ay-by) - (ax-bx)*(py-by)
}
