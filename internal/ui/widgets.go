package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// Overlay palette
var (
	colorBg        = color.RGBA{32, 33, 35, 255}
	colorUpload    = color.RGBA{234, 179, 8, 255}
	colorDownload  = color.RGBA{88, 140, 236, 255}
	colorPaused    = color.RGBA{156, 163, 175, 255}
	colorWhite     = color.RGBA{237, 237, 237, 255}
	colorSeparator = color.RGBA{55, 57, 61, 255}
)

const speedTextSize = 11

// speedView draws the two speed labels and turns pointer input into drag and
// context-menu callbacks.
type speedView struct {
	widget.BaseWidget

	up, down *canvas.Text
	compact  bool

	onDragged   func(e *fyne.DragEvent)
	onDragEnd   func()
	onSecondary func(e *fyne.PointEvent)
}

func newSpeedView() *speedView {
	v := &speedView{
		up:   canvas.NewText(arrowUp+" --", colorUpload),
		down: canvas.NewText(arrowDown+" --", colorDownload),
	}
	for _, t := range []*canvas.Text{v.up, v.down} {
		t.TextSize = speedTextSize
		t.TextStyle = fyne.TextStyle{Monospace: true}
	}
	v.ExtendBaseWidget(v)
	return v
}

func (v *speedView) setText(up, down string) {
	if v.up.Text == up && v.down.Text == down {
		return
	}
	v.up.Text, v.down.Text = up, down
	v.up.Refresh()
	v.down.Refresh()
}

func (v *speedView) setPaused(paused bool) {
	up, down := color.Color(colorUpload), color.Color(colorDownload)
	if paused {
		up, down = colorPaused, colorPaused
	}
	v.up.Color, v.down.Color = up, down
	v.up.Refresh()
	v.down.Refresh()
}

func (v *speedView) setCompact(compact bool) {
	v.compact = compact
	v.Refresh()
}

// Dragged implements fyne.Draggable
func (v *speedView) Dragged(e *fyne.DragEvent) {
	if v.onDragged != nil {
		v.onDragged(e)
	}
}

// DragEnd implements fyne.Draggable
func (v *speedView) DragEnd() {
	if v.onDragEnd != nil {
		v.onDragEnd()
	}
}

// TappedSecondary implements fyne.SecondaryTappable
func (v *speedView) TappedSecondary(e *fyne.PointEvent) {
	if v.onSecondary != nil {
		v.onSecondary(e)
	}
}

func (v *speedView) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(colorBg)
	return &speedViewRenderer{view: v, bg: bg}
}

type speedViewRenderer struct {
	view *speedView
	bg   *canvas.Rectangle
}

const textPadding = 4

// templateText sizes the labels for the widest value so the window does not
// resize on every sample.
const templateText = arrowDown + " 888.88 Kbps"

func (r *speedViewRenderer) lineSize() fyne.Size {
	return fyne.MeasureText(templateText, speedTextSize, fyne.TextStyle{Monospace: true})
}

func (r *speedViewRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	line := r.lineSize()
	if r.view.compact {
		y := (size.Height - line.Height) / 2
		r.view.up.Move(fyne.NewPos(textPadding, y))
		r.view.down.Move(fyne.NewPos(textPadding+line.Width+textPadding*2, y))
	} else {
		gap := max(0, (size.Height-2*line.Height)/3)
		r.view.up.Move(fyne.NewPos(textPadding, gap))
		r.view.down.Move(fyne.NewPos(textPadding, gap*2+line.Height))
	}
	r.view.up.Resize(line)
	r.view.down.Resize(line)
}

func (r *speedViewRenderer) MinSize() fyne.Size {
	line := r.lineSize()
	if r.view.compact {
		return fyne.NewSize(line.Width*2+textPadding*4, line.Height+textPadding)
	}
	return fyne.NewSize(line.Width+textPadding*2, line.Height*2+textPadding)
}

func (r *speedViewRenderer) Refresh() {
	r.bg.Refresh()
	r.Layout(r.view.Size())
	canvas.Refresh(r.view)
}

func (r *speedViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.bg, r.view.up, r.view.down}
}

func (r *speedViewRenderer) Destroy() {}

// SectionHeader creates a bold section header for dialogs
func SectionHeader(text string) *widget.Label {
	l := widget.NewLabel(text)
	l.TextStyle = fyne.TextStyle{Bold: true}
	return l
}

// Separator creates a thin horizontal divider line
func Separator() *canvas.Rectangle {
	sep := canvas.NewRectangle(colorSeparator)
	sep.SetMinSize(fyne.NewSize(0, 1))
	return sep
}

// fixedWidthLayout forces children to a fixed width
type fixedWidthLayout struct {
	width float32
}

func (l *fixedWidthLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	h := float32(0)
	for _, o := range objects {
		h = fyne.Max(h, o.MinSize().Height)
	}
	return fyne.NewSize(l.width, h)
}

func (l *fixedWidthLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	for _, o := range objects {
		o.Resize(fyne.NewSize(l.width, size.Height))
		o.Move(fyne.NewPos(0, 0))
	}
}
