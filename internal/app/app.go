// Package app wires the overlay, the positioning core and the background
// samplers into a running tray application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"

	"netspeedtray/internal/assets"
	"netspeedtray/internal/config"
	"netspeedtray/internal/export"
	"netspeedtray/internal/history"
	"netspeedtray/internal/hotkeys"
	"netspeedtray/internal/netspeed"
	"netspeedtray/internal/platform"
	"netspeedtray/internal/position"
	"netspeedtray/internal/scheduler"
	"netspeedtray/internal/startup"
	"netspeedtray/internal/taskbar"
	"netspeedtray/internal/ui"
	"netspeedtray/internal/visibility"
)

// HistoryFile is the database name inside the config directory
const HistoryFile = "speed_history.db"

// Options configures Run.
type Options struct {
	Logger *slog.Logger
}

// App is the main application
type App struct {
	fyneApp  fyne.App
	config   *config.Config
	settings config.Settings
	logger   *slog.Logger

	// Core
	shell      taskbar.Shell
	discovery  *taskbar.Discoverer
	position   *position.Manager
	classifier *visibility.Classifier
	scheduler  *scheduler.Scheduler
	hotkeyMgr  *hotkeys.Manager
	watcher    *config.Watcher
	startup    *startup.Manager

	// Background work
	monitor       *netspeed.Monitor
	store         *history.Store
	recorder      *history.Recorder
	ctx           context.Context
	cancel        context.CancelFunc
	samplerCancel context.CancelFunc
	samplerRate   float64
	wg            sync.WaitGroup
	paused        atomic.Bool
	recording     atomic.Bool

	// UI components
	tray        *ui.TrayManager
	overlay     *ui.OverlayWindow
	contextMenu *ui.ContextMenu
	settingsDlg *ui.SettingsDialog

	// GUI goroutine only
	last netspeed.Speed

	mu      sync.Mutex
	running bool
}

// Run starts the application and blocks until it quits
func Run(opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{logger: logger.With("component", "app")}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	// Initialize Fyne app
	a.fyneApp = fyneapp.NewWithID("com.netspeedtray.app")
	a.fyneApp.Settings().SetTheme(theme.DarkTheme())
	a.fyneApp.SetIcon(assets.AppIcon())

	// Load config
	a.config = config.Get()
	a.settings = a.config.Settings()

	a.initCore(logger)
	a.initStartup(logger)
	a.initUI(logger)
	a.initBackground(logger)

	// Start hotkey listener
	a.hotkeyMgr = hotkeys.NewManager(nil, logger)
	a.hotkeyMgr.SetCallbacks(hotkeys.Callbacks{
		ToggleOverlay:  onGUI(a.toggleOverlay),
		ResetPosition:  onGUI(a.resetPosition),
		ToggleFreeMove: onGUI(a.toggleFreeMove),
		TogglePause:    onGUI(a.togglePause),
	})
	if err := a.hotkeyMgr.Start(); err != nil {
		a.logger.Warn("failed to start hotkey listener", "error", err)
	}

	// Reload on external edits
	if w, err := config.NewWatcher(a.config, func(*config.Config) { fyne.Do(a.applyConfig) }); err != nil {
		a.logger.Warn("config watcher unavailable", "error", err)
	} else if err := w.Start(); err != nil {
		a.logger.Warn("failed to start config watcher", "error", err)
	} else {
		a.watcher = w
	}

	if a.config.Snapshot().Paused {
		a.paused.Store(true)
		a.scheduler.Pause()
		a.overlay.SetPaused(true)
	}
	a.syncTray()

	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	if err := a.scheduler.StartMonitoring(); err != nil {
		a.shutdown()
		return fmt.Errorf("start monitoring: %w", err)
	}

	// Run the app (blocking)
	a.fyneApp.Run()

	// Cleanup
	a.shutdown()
	return nil
}

// onGUI wraps f so that it runs on the Fyne main thread.
func onGUI(f func()) func() {
	return func() { fyne.Do(f) }
}

// initCore builds the positioning and visibility pipeline.
func (a *App) initCore(logger *slog.Logger) {
	a.shell = taskbar.NewShell()
	a.discovery = taskbar.NewDiscoverer(a.shell, logger)

	a.overlay = ui.NewOverlayWindow(a.fyneApp, platform.Features, a.shell, logger)
	a.overlay.Setup()
	a.overlay.SetOpacity(a.config.Snapshot().OverlayOpacity)

	calc := position.NewCalculator(a.discovery, logger)
	a.position = position.NewManager(calc, a.discovery, a.settings, a.overlay, platform.Features, logger)
	a.classifier = visibility.New(visibility.NewInspector(), a.discovery, uint32(os.Getpid()), logger)

	a.scheduler = scheduler.New(scheduler.Deps{
		Dispatch:   fyne.Do,
		Positioner: a.position,
		Classifier: a.classifier,
		Discovery:  a.discovery,
		Widget:     a.overlay,
		Settings:   a.settings,
		Hook:       scheduler.NewHook(logger),
		Logger:     logger,
	}, scheduler.DefaultOptions())
}

// initUI initializes the tray, context menu and settings dialog
func (a *App) initUI(logger *slog.Logger) {
	a.contextMenu = ui.NewContextMenu(a.fyneApp, platform.Features, a.shell, logger)

	a.tray = ui.NewTrayManager(a.fyneApp, logger)
	a.tray.SetCallbacks(ui.TrayCallbacks{
		ToggleOverlay:  a.toggleOverlay,
		ToggleFreeMove: a.toggleFreeMove,
		ResetPosition:  a.resetPosition,
		TogglePause:    a.togglePause,
		ToggleStartup:  a.toggleStartup,
		ExportCSV:      func() { a.exportAsync(export.KindCSV) },
		ExportGraph:    func() { a.exportAsync(export.KindGraph) },
		Settings:       a.showSettings,
		Quit:           a.quit,
	})
	if err := a.tray.Setup(); err != nil {
		a.logger.Warn("system tray setup failed", "error", err)
	}

	a.overlay.SetCallbacks(ui.OverlayCallbacks{
		DragStarted: func() { a.scheduler.SetDragging(true) },
		Constrain:   a.position.ConstrainDrag,
		DragEnded:   a.dragEnded,
		ContextMenu: a.showContextMenu,
	})
	a.applyLayout()
}

// initBackground opens the history database and starts the sampler.
func (a *App) initBackground(logger *slog.Logger) {
	snap := a.config.Snapshot()
	a.monitor = netspeed.NewMonitor(netspeed.NewSource(), snap.ExcludedInterfaces, logger)
	a.recording.Store(snap.HistoryEnabled)

	if dir, err := config.Dir(); err != nil {
		a.logger.Warn("no data directory, history disabled", "error", err)
	} else if store, err := history.Open(a.ctx, filepath.Join(dir, HistoryFile), logger); err != nil {
		a.logger.Warn("failed to open history database", "error", err)
	} else {
		a.store = store
		a.recorder = history.NewRecorder(store, history.RecorderOptions{
			KeepDays: func() int { return a.config.Snapshot().KeepData },
		}, logger)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.recorder.Run(a.ctx)
		}()
	}

	a.startSampler(snap.UpdateRate)
}

// startSampler (re)starts the network sampler at the given rate in seconds.
func (a *App) startSampler(rate float64) {
	if a.samplerCancel != nil {
		a.samplerCancel()
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.samplerCancel, a.samplerRate = cancel, rate

	interval := time.Duration(rate * float64(time.Second))
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.monitor.Run(ctx, interval, a.onSpeed)
	}()
	a.logger.Debug("sampler started", "interval", interval)
}

// onSpeed runs on the sampler goroutine.
func (a *App) onSpeed(s netspeed.Speed) {
	if a.paused.Load() {
		return
	}
	if a.recorder != nil && a.recording.Load() {
		a.recorder.Add(s)
	}
	fyne.Do(func() { a.showSpeed(s) })
}

func (a *App) showSpeed(s netspeed.Speed) {
	a.last = s
	snap := a.config.Snapshot()
	a.overlay.SetSpeed(s.Rate, snap.SpeedUnit, snap.DecimalPlaces)
	a.tray.SetStatus(ui.Tooltip(s, snap.SpeedUnit, snap.DecimalPlaces, time.Now()))
	a.applyLayout()
}

// applyLayout picks the one-line layout on small taskbars and repositions
// when the window size changed.
func (a *App) applyLayout() {
	info, ok := a.position.TaskbarInfo()
	if !ok {
		return
	}
	if a.overlay.SetCompact(taskbar.IsSmallTaskbar(info)) && a.overlay.IsVisible() && !a.settings.FreeMove() {
		a.position.UpdatePosition(nil)
	}
}

// applyConfig pushes the current config into every component. Runs on the
// GUI goroutine.
func (a *App) applyConfig() {
	snap := a.config.Snapshot()
	a.overlay.SetOpacity(snap.OverlayOpacity)
	a.monitor.SetExclusions(snap.ExcludedInterfaces)
	a.recording.Store(snap.HistoryEnabled)
	if snap.UpdateRate != a.samplerRate {
		a.startSampler(snap.UpdateRate)
	}
	if snap.Paused != a.scheduler.Paused() {
		a.setPaused(snap.Paused, false)
	}
	if !snap.FreeMove {
		a.position.UpdatePosition(nil)
	}
	a.syncStartup(snap.StartWithWindows)
	a.scheduler.ExecuteRefresh(0)
	if !a.last.Time.IsZero() {
		a.showSpeed(a.last)
	}
	a.syncTray()
}

func (a *App) syncTray() {
	snap := a.config.Snapshot()
	a.tray.SetState(ui.TrayState{
		OverlayShown: snap.OverlayEnabled,
		FreeMove:     snap.FreeMove,
		Paused:       a.scheduler.Paused(),
		StartOnLogon: snap.StartWithWindows,
	})
}

// initStartup registers the executable under the Run key when
// start_with_windows asks for it.
func (a *App) initStartup(logger *slog.Logger) {
	exe, err := os.Executable()
	if err != nil {
		a.logger.Warn("cannot resolve executable for startup entry", "error", err)
		return
	}
	a.startup = startup.NewManager(startup.NewRegistry(), config.AppName, exe, logger)
	a.syncStartup(a.config.Snapshot().StartWithWindows)
}

func (a *App) syncStartup(want bool) {
	if a.startup == nil {
		return
	}
	err := a.startup.Sync(want)
	switch {
	case errors.Is(err, startup.ErrUnsupported):
		a.logger.Debug("run at logon not supported on this platform")
	case err != nil:
		a.logger.Warn("failed to update startup entry", "enabled", want, "error", err)
	}
}

func (a *App) toggleStartup() {
	on := !a.config.Snapshot().StartWithWindows
	if err := a.config.SetStartWithWindows(on); err != nil {
		a.logger.Warn("failed to save start with windows", "error", err)
	}
	a.syncStartup(on)
	a.logger.Info("start with windows toggled", "enabled", on)
	a.syncTray()
}

func (a *App) dragEnded() {
	a.scheduler.SetDragging(false)
	if err := a.position.SavePosition(); err != nil {
		a.logger.Warn("failed to save position", "error", err)
	}
	if !a.settings.FreeMove() {
		a.position.UpdatePosition(nil)
	}
}

func (a *App) showContextMenu(at taskbar.Point) {
	a.scheduler.SetContextMenuOpen(true)
	a.contextMenu.Show(a.tray.Menu(), at, func() {
		a.scheduler.SetContextMenuOpen(false)
	})
}

// toggleOverlay flips overlay_enabled; the scheduler applies it.
func (a *App) toggleOverlay() {
	if err := a.config.ToggleOverlay(); err != nil {
		a.logger.Warn("failed to save overlay state", "error", err)
	}
	a.scheduler.ExecuteRefresh(0)
	a.syncTray()
}

func (a *App) toggleFreeMove() {
	on := !a.settings.FreeMove()
	if err := a.config.SetFreeMove(on); err != nil {
		a.logger.Warn("failed to save free move", "error", err)
	}
	a.logger.Info("free move toggled", "enabled", on)
	a.position.UpdatePosition(nil)
	a.syncTray()
}

func (a *App) resetPosition() {
	a.position.ResetToDefaultPosition()
}

func (a *App) togglePause() {
	a.setPaused(!a.scheduler.Paused(), true)
}

func (a *App) setPaused(paused, persist bool) {
	a.paused.Store(paused)
	if paused {
		a.scheduler.Pause()
	} else {
		a.monitor.Reset()
		a.scheduler.Resume()
	}
	a.overlay.SetPaused(paused)
	if persist {
		if err := a.config.SetPaused(paused); err != nil {
			a.logger.Warn("failed to save pause state", "error", err)
		}
	}
	a.logger.Info("monitoring paused", "paused", paused)
	a.syncTray()
}

// exportAsync writes an export in the background and reports the outcome
// with a notification.
func (a *App) exportAsync(kind export.Kind) {
	if a.store == nil {
		a.notify("Export failed", "History database is not available")
		return
	}
	snap := a.config.Snapshot()
	req := export.Request{
		Kind:  kind,
		Since: time.Duration(snap.KeepData) * 24 * time.Hour,
		Graph: export.GraphOptions{Bytes: snap.SpeedUnit == config.SpeedUnitBytes},
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		res, err := export.ToFile(a.ctx, a.store, req)
		switch {
		case errors.Is(err, export.ErrNoData):
			a.notify("Nothing to export", "No speed history has been recorded yet")
		case err != nil:
			a.logger.Warn("export failed", "kind", kind, "error", err)
			a.notify("Export failed", err.Error())
		default:
			a.logger.Info("history exported", "kind", kind, "path", res.Path, "points", res.Points)
			a.notify("Export complete", res.Path)
		}
	}()
}

func (a *App) notify(title, body string) {
	a.fyneApp.SendNotification(fyne.NewNotification(config.AppName+": "+title, body))
}

// showSettings shows the settings dialog
func (a *App) showSettings() {
	if a.settingsDlg == nil {
		a.settingsDlg = ui.NewSettingsDialog(a.fyneApp, a.config)
		a.settingsDlg.SetOnSave(a.applyConfig)
	}
	a.settingsDlg.Show()
}

// quit shuts down the application
func (a *App) quit() {
	a.shutdown()
	a.fyneApp.Quit()
}

// shutdown stops monitoring before any window goes away, then drains the
// background goroutines so the last history batch is written.
func (a *App) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	a.running = false

	a.logger.Info("shutting down")

	a.scheduler.StopMonitoring()
	a.hotkeyMgr.Stop()
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Debug("config watcher stop", "error", err)
		}
	}

	a.cancel()
	a.wg.Wait()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close history database", "error", err)
		}
	}

	a.contextMenu.Close()
	a.overlay.Close()
	a.logger.Info("shutdown complete")
}
