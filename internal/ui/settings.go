package ui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"netspeedtray/internal/config"
)

// SettingsDialog manages the settings window
type SettingsDialog struct {
	app    fyne.App
	config *config.Config
	onSave func()
	window fyne.Window
}

// NewSettingsDialog creates a new settings dialog
func NewSettingsDialog(app fyne.App, cfg *config.Config) *SettingsDialog {
	return &SettingsDialog{app: app, config: cfg}
}

// SetOnSave sets the callback run after a successful save
func (s *SettingsDialog) SetOnSave(onSave func()) {
	s.onSave = onSave
}

// settingsForm is the editable copy of the settings shown in the dialog.
type settingsForm struct {
	updateRate  binding.Float
	offsetX     binding.Float
	offsetY     binding.Float
	opacity     binding.Float
	keepData    binding.Float
	freeMove    binding.Bool
	keepVisible binding.Bool
	history     binding.Bool
	startup     binding.Bool
	speedUnit   binding.String
	decimals    binding.Int
}

func newSettingsForm(c config.Config) *settingsForm {
	f := &settingsForm{
		updateRate:  binding.NewFloat(),
		offsetX:     binding.NewFloat(),
		offsetY:     binding.NewFloat(),
		opacity:     binding.NewFloat(),
		keepData:    binding.NewFloat(),
		freeMove:    binding.NewBool(),
		keepVisible: binding.NewBool(),
		history:     binding.NewBool(),
		startup:     binding.NewBool(),
		speedUnit:   binding.NewString(),
		decimals:    binding.NewInt(),
	}
	f.updateRate.Set(c.UpdateRate)
	f.offsetX.Set(float64(c.TrayOffsetX))
	f.offsetY.Set(float64(c.TrayOffsetY))
	f.opacity.Set(c.OverlayOpacity)
	f.keepData.Set(float64(c.KeepData))
	f.freeMove.Set(c.FreeMove)
	f.keepVisible.Set(c.KeepVisibleFullscreen)
	f.history.Set(c.HistoryEnabled)
	f.startup.Set(c.StartWithWindows)
	f.speedUnit.Set(c.SpeedUnit)
	f.decimals.Set(c.DecimalPlaces)
	return f
}

// apply copies the form into c
func (f *settingsForm) apply(c *config.Config) {
	rate, _ := f.updateRate.Get()
	ox, _ := f.offsetX.Get()
	oy, _ := f.offsetY.Get()
	opacity, _ := f.opacity.Get()
	keep, _ := f.keepData.Get()
	freeMove, _ := f.freeMove.Get()
	keepVisible, _ := f.keepVisible.Get()
	history, _ := f.history.Get()
	startup, _ := f.startup.Get()
	unit, _ := f.speedUnit.Get()
	decimals, _ := f.decimals.Get()

	c.UpdateRate = rate
	c.TrayOffsetX = int(ox)
	c.TrayOffsetY = int(oy)
	c.OverlayOpacity = opacity
	c.KeepData = int(keep)
	c.FreeMove = freeMove
	c.KeepVisibleFullscreen = keepVisible
	c.HistoryEnabled = history
	c.StartWithWindows = startup
	c.SpeedUnit = unit
	c.DecimalPlaces = decimals
}

// Show displays the settings window, focusing an already open one.
func (s *SettingsDialog) Show() {
	if s.window != nil {
		s.window.RequestFocus()
		return
	}

	window := s.app.NewWindow(config.AppName + " Settings")
	window.Resize(fyne.NewSize(380, 520))
	s.window = window
	window.SetOnClosed(func() { s.window = nil })

	form := newSettingsForm(s.config.Snapshot())

	// --- Position ---
	positionSection := container.NewVBox(
		SectionHeader("Position"),
		widget.NewCheckWithData("Free move (drag anywhere)", form.freeMove),
		sliderRow("Tray offset X", form.offsetX, 0, config.MaxTrayOffset, 1, "%.0f px"),
		sliderRow("Tray offset Y", form.offsetY, 0, config.MaxTrayOffset, 1, "%.0f px"),
		widget.NewCheckWithData("Keep visible over fullscreen apps", form.keepVisible),
	)

	// --- Display ---
	unitRadio := widget.NewRadioGroup([]string{config.SpeedUnitBits, config.SpeedUnitBytes}, func(v string) {
		form.speedUnit.Set(v)
	})
	unitRadio.Horizontal = true
	unit, _ := form.speedUnit.Get()
	unitRadio.SetSelected(unit)

	decimalsSelect := widget.NewSelect([]string{"0", "1", "2"}, func(v string) {
		n, _ := strconv.Atoi(v)
		form.decimals.Set(n)
	})
	decimals, _ := form.decimals.Get()
	decimalsSelect.SetSelected(strconv.Itoa(decimals))

	displaySection := container.NewVBox(
		SectionHeader("Display"),
		sliderRow("Update rate", form.updateRate, config.MinUpdateRate, config.MaxUpdateRate, 0.1, "%.1fs"),
		sliderRow("Opacity", form.opacity, config.MinOpacity, 1, 0.05, "%.0f%%", 100),
		container.NewHBox(widget.NewLabel("Units"), layout.NewSpacer(), unitRadio),
		container.NewHBox(widget.NewLabel("Decimal places"), layout.NewSpacer(), decimalsSelect),
	)

	// --- Startup ---
	startupSection := container.NewVBox(
		SectionHeader("Startup"),
		widget.NewCheckWithData("Start with Windows", form.startup),
	)

	// --- History ---
	historySection := container.NewVBox(
		SectionHeader("History"),
		widget.NewCheckWithData("Record speed history", form.history),
		sliderRow("Keep data", form.keepData, config.MinKeepData, config.MaxKeepData, 1, "%.0f days"),
	)

	// --- Buttons ---
	saveBtn := widget.NewButton("Save", func() {
		if err := s.config.Update(form.apply); err != nil {
			dialog.ShowError(err, window)
			return
		}
		if s.onSave != nil {
			s.onSave()
		}
		dialog.ShowInformation("Saved", "Settings saved", window)
	})
	saveBtn.Importance = widget.HighImportance

	closeBtn := widget.NewButton("Close", func() {
		window.Close()
	})

	buttons := container.NewHBox(layout.NewSpacer(), saveBtn, closeBtn, layout.NewSpacer())

	content := container.NewVBox(
		positionSection,
		widget.NewSeparator(),
		displaySection,
		widget.NewSeparator(),
		historySection,
		widget.NewSeparator(),
		startupSection,
		widget.NewSeparator(),
		buttons,
	)

	window.SetContent(container.NewPadded(content))
	window.Show()
}

// sliderRow builds a labelled slider with a live value label. An optional
// display multiplier scales the shown value (e.g. 100 for percentages).
func sliderRow(label string, b binding.Float, lo, hi, step float64, format string, mult ...float64) fyne.CanvasObject {
	m := 1.0
	if len(mult) > 0 {
		m = mult[0]
	}
	slider := widget.NewSliderWithData(lo, hi, b)
	slider.Step = step

	value := widget.NewLabel("")
	b.AddListener(binding.NewDataListener(func() {
		v, _ := b.Get()
		value.SetText(fmt.Sprintf(format, v*m))
	}))

	header := container.NewHBox(widget.NewLabel(label), layout.NewSpacer(),
		container.New(&fixedWidthLayout{width: 80}, value))
	return container.NewVBox(header, slider)
}
