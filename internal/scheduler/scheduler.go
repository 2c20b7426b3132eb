// Package scheduler runs the control loop that decides when the overlay's
// visibility and position are re-evaluated. Window events and three polling
// timers all converge on ExecuteRefresh.
package scheduler

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"netspeedtray/internal/taskbar"
)

// Positioner is the slice of position.Manager the scheduler drives.
type Positioner interface {
	UpdatePosition(fresh *taskbar.Info)
	EnsureTopmost()
	CheckTrayChange() bool
	NoteTaskbarLost() int
	NoteTaskbarFound()
}

// Classifier answers the visibility questions.
type Classifier interface {
	ShouldBeVisible(info taskbar.Info, hwnd uintptr) bool
	IsTaskbarVisible(info taskbar.Info) bool
	IsObstructed(info taskbar.Info, hwnd uintptr) bool
	IsTrueFullscreen(info taskbar.Info, hwnd uintptr) bool
	ForegroundWindow() uintptr
}

// Discovery resolves taskbars and checks handle liveness.
type Discovery interface {
	DiscoverPrimary() taskbar.Info
	IsHandleValid(hwnd uintptr) bool
	ResetCache()
}

// Widget is the visibility side of the overlay window.
type Widget interface {
	IsVisible() bool
	SetVisible(visible bool)
}

// Settings exposes the configuration flags read on every refresh.
type Settings interface {
	FreeMove() bool
	KeepVisibleFullscreen() bool
	OverlayEnabled() bool
}

// Deps are the collaborators of a Scheduler. Dispatch runs a function on the
// GUI goroutine without waiting for it; every Positioner, Classifier and
// Widget call happens inside a dispatched function.
type Deps struct {
	Dispatch   func(func())
	Positioner Positioner
	Classifier Classifier
	Discovery  Discovery
	Widget     Widget
	Settings   Settings
	Hook       Hook
	Logger     *slog.Logger
}

// Options holds the scheduler timings.
type Options struct {
	Debounce              time.Duration
	TrayWatchInterval     time.Duration
	SafetyInterval        time.Duration
	ValidityInterval      time.Duration
	RestartRetries        int
	RestartRetryDelay     time.Duration
	InitialDelay          time.Duration
	ImmediateHideCooldown time.Duration
	LostWarnEvery         int
	EventBuffer           int
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		Debounce:              250 * time.Millisecond,
		TrayWatchInterval:     10 * time.Second,
		SafetyInterval:        time.Second,
		ValidityInterval:      3 * time.Second,
		RestartRetries:        5,
		RestartRetryDelay:     time.Second,
		InitialDelay:          500 * time.Millisecond,
		ImmediateHideCooldown: time.Second,
		LostWarnEvery:         10,
		EventBuffer:           64,
	}
}

// ErrAlreadyStarted is returned by a second StartMonitoring call.
var ErrAlreadyStarted = errors.New("scheduler: already started")

// Scheduler owns the hooks and timers. Suppression flags may be set from any
// goroutine; refresh state is only touched on the GUI goroutine.
type Scheduler struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	events    chan Event
	restarted chan struct{}
	stop      chan struct{}
	done      chan struct{}

	// watched is the taskbar handle move/size events are filtered on. Written
	// on the GUI goroutine, read by the event loop.
	watched atomic.Uintptr

	mu               sync.Mutex
	started, stopped bool
	menuOpen         bool
	dragging         bool
	paused           bool
	lastImmediate    time.Time

	// GUI goroutine only.
	haveGood bool
	placed   bool
}

// New creates a scheduler. Zero option fields take their defaults.
func New(deps Deps, opts Options) *Scheduler {
	def := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if opts.TrayWatchInterval <= 0 {
		opts.TrayWatchInterval = def.TrayWatchInterval
	}
	if opts.SafetyInterval <= 0 {
		opts.SafetyInterval = def.SafetyInterval
	}
	if opts.ValidityInterval <= 0 {
		opts.ValidityInterval = def.ValidityInterval
	}
	if opts.RestartRetries <= 0 {
		opts.RestartRetries = def.RestartRetries
	}
	if opts.RestartRetryDelay <= 0 {
		opts.RestartRetryDelay = def.RestartRetryDelay
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = def.InitialDelay
	}
	if opts.ImmediateHideCooldown <= 0 {
		opts.ImmediateHideCooldown = def.ImmediateHideCooldown
	}
	if opts.LostWarnEvery <= 0 {
		opts.LostWarnEvery = def.LostWarnEvery
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = def.EventBuffer
	}
	if deps.Dispatch == nil {
		deps.Dispatch = func(f func()) { f() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		deps:      deps,
		opts:      opts,
		logger:    logger.With("component", "scheduler"),
		now:       time.Now,
		events:    make(chan Event, opts.EventBuffer),
		restarted: make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// StartMonitoring installs the hooks and starts the timers. Hook failures are
// logged; the timers alone keep the overlay correct, only less responsive.
// Must run on the GUI goroutine.
func (s *Scheduler) StartMonitoring() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	s.startHook()
	go s.run()
	s.logger.Info("monitoring started", "watched_taskbar", s.watched.Load())
	return nil
}

// StopMonitoring stops timers and hooks and waits for the loop to exit.
// Functions already queued on the GUI goroutine become no-ops.
func (s *Scheduler) StopMonitoring() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stop)
	<-s.done
	s.stopHook()
	s.logger.Info("monitoring stopped")
}

// SetContextMenuOpen suppresses refreshes while the overlay menu is shown.
func (s *Scheduler) SetContextMenuOpen(open bool) {
	s.mu.Lock()
	s.menuOpen = open
	s.mu.Unlock()
}

// SetDragging suppresses refreshes while the user drags the overlay.
func (s *Scheduler) SetDragging(dragging bool) {
	s.mu.Lock()
	s.dragging = dragging
	s.mu.Unlock()
}

// Pause stops event processing until Resume.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.logger.Info("event processing paused")
}

// Resume re-enables event processing and refreshes right away.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	wasPaused := s.paused
	s.paused = false
	s.mu.Unlock()
	if wasPaused {
		s.logger.Info("event processing resumed")
		s.dispatch(func() { s.ExecuteRefresh(0) })
	}
}

// Paused reports the pause state
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// ExecuteRefresh is the single authoritative re-evaluation. hwnd is the
// window to classify, 0 meaning the current foreground window. It is
// idempotent and never panics. Must run on the GUI goroutine.
func (s *Scheduler) ExecuteRefresh(hwnd uintptr) {
	if s.suppressed() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("refresh failed, hiding overlay", "panic", r)
			s.hideQuietly()
		}
	}()

	if !s.deps.Settings.OverlayEnabled() {
		if s.deps.Widget.IsVisible() {
			s.deps.Widget.SetVisible(false)
		}
		return
	}

	info := s.deps.Discovery.DiscoverPrimary()
	if info.IsFallback() {
		n := s.deps.Positioner.NoteTaskbarLost()
		if n%s.opts.LostWarnEvery == 0 {
			s.logger.Warn("taskbar detection failing, coasting", "failures", n)
		}
		if s.haveGood {
			s.coast(info, hwnd)
			return
		}
	} else {
		s.deps.Positioner.NoteTaskbarFound()
		s.haveGood = true
	}

	if hwnd == 0 {
		hwnd = s.deps.Classifier.ForegroundWindow()
	}

	visible := s.decide(info, hwnd)
	current := s.deps.Widget.IsVisible()
	if visible && !current && s.inCooldown() {
		return
	}
	if visible != current {
		s.logger.Debug("visibility changed", "visible", visible, "foreground", hwnd)
		s.deps.Widget.SetVisible(visible)
	}
	if !visible {
		return
	}

	if !s.deps.Settings.FreeMove() {
		s.deps.Positioner.UpdatePosition(&info)
		s.placed = true
	}
	s.deps.Positioner.EnsureTopmost()
}

// coast keeps the last good placement while detection fails; single-tick
// failures are common. It never hides, but a hidden overlay is still shown
// again once nothing obstructs it.
func (s *Scheduler) coast(info taskbar.Info, hwnd uintptr) {
	if s.deps.Widget.IsVisible() {
		s.deps.Positioner.EnsureTopmost()
		return
	}
	if hwnd == 0 {
		hwnd = s.deps.Classifier.ForegroundWindow()
	}
	if !s.decide(info, hwnd) || s.inCooldown() {
		return
	}
	if !s.placed {
		// Never positioned: the fallback snapshot yields the safe position.
		s.deps.Positioner.UpdatePosition(&info)
		s.placed = true
	}
	s.logger.Debug("showing overlay while taskbar detection fails", "foreground", hwnd)
	s.deps.Widget.SetVisible(true)
	s.deps.Positioner.EnsureTopmost()
}

// decide computes the target visibility. Without any taskbar ever found the
// overlay is shown at the fallback position rather than staying invisible.
func (s *Scheduler) decide(info taskbar.Info, hwnd uintptr) bool {
	keep := s.deps.Settings.KeepVisibleFullscreen()
	if info.IsFallback() {
		return keep || !s.deps.Classifier.IsObstructed(info, hwnd)
	}
	if keep {
		return s.deps.Classifier.IsTaskbarVisible(info)
	}
	return s.deps.Classifier.ShouldBeVisible(info, hwnd)
}

// immediateHide handles the narrow true-fullscreen case without waiting for
// the debounce. It only ever hides.
func (s *Scheduler) immediateHide(hwnd uintptr) {
	if s.isPaused() || s.deps.Settings.KeepVisibleFullscreen() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("immediate hide failed", "panic", r)
		}
	}()

	info := s.deps.Discovery.DiscoverPrimary()
	if !s.deps.Classifier.IsTrueFullscreen(info, hwnd) {
		return
	}
	s.mu.Lock()
	s.lastImmediate = s.now()
	s.mu.Unlock()
	if s.deps.Widget.IsVisible() {
		s.logger.Debug("fullscreen window, hiding immediately", "hwnd", hwnd)
		s.deps.Widget.SetVisible(false)
	}
}

func (s *Scheduler) run() {
	defer close(s.done)

	initial := time.NewTimer(s.opts.InitialDelay)
	safety := time.NewTicker(s.opts.SafetyInterval)
	tray := time.NewTicker(s.opts.TrayWatchInterval)
	validity := time.NewTicker(s.opts.ValidityInterval)
	debounce := time.NewTimer(s.opts.Debounce)
	debounce.Stop()
	burst := time.NewTimer(s.opts.RestartRetryDelay)
	burst.Stop()
	defer func() {
		initial.Stop()
		safety.Stop()
		tray.Stop()
		validity.Stop()
		debounce.Stop()
		burst.Stop()
	}()

	var (
		pending   uintptr
		burstLeft int
	)

	for {
		select {
		case <-s.stop:
			return

		case ev := <-s.events:
			if s.isPaused() {
				continue
			}
			switch ev.Kind {
			case EventForeground:
				hwnd := ev.Handle
				s.dispatch(func() { s.immediateHide(hwnd) })
				pending = hwnd
				debounce.Reset(s.opts.Debounce)
			case EventMoveSizeEnd:
				if watched := s.watched.Load(); watched != 0 && ev.Handle != watched {
					continue
				}
				s.logger.Debug("taskbar moved or resized")
				s.dispatch(s.taskbarChanged)
			}

		case <-debounce.C:
			hwnd := pending
			s.dispatch(func() { s.ExecuteRefresh(hwnd) })

		case <-initial.C:
			s.logger.Debug("initial refresh")
			s.dispatch(func() { s.ExecuteRefresh(0) })

		case <-safety.C:
			s.dispatch(func() { s.ExecuteRefresh(0) })

		case <-tray.C:
			if s.suppressed() {
				continue
			}
			s.dispatch(func() { s.deps.Positioner.CheckTrayChange() })

		case <-validity.C:
			if s.isPaused() {
				continue
			}
			s.dispatch(s.checkShell)

		case <-s.restarted:
			burstLeft = s.opts.RestartRetries
			burst.Reset(s.opts.RestartRetryDelay)

		case <-burst.C:
			s.dispatch(func() { s.ExecuteRefresh(0) })
			burstLeft--
			if burstLeft > 0 {
				burst.Reset(s.opts.RestartRetryDelay)
			}
		}
	}
}

// checkShell restarts the hooks when the watched taskbar handle died, which
// means explorer restarted, and asks the loop for a refresh burst.
func (s *Scheduler) checkShell() {
	watched := s.watched.Load()
	if watched == 0 {
		// No taskbar at startup; pick it up once the shell has one.
		s.watched.Store(s.deps.Discovery.DiscoverPrimary().Handle)
		return
	}
	if s.deps.Discovery.IsHandleValid(watched) {
		return
	}
	s.logger.Warn("watched taskbar handle invalid, shell likely restarted", "handle", watched)
	s.deps.Discovery.ResetCache()
	s.restartHook()
	select {
	case s.restarted <- struct{}{}:
	default:
	}
}

func (s *Scheduler) taskbarChanged() {
	if s.suppressed() {
		return
	}
	s.deps.Positioner.UpdatePosition(nil)
}

// startHook starts the event hook and records the taskbar handle the
// move/size events are filtered on.
func (s *Scheduler) startHook() {
	if s.deps.Hook != nil {
		if err := s.deps.Hook.Start(s.events); err != nil {
			s.logger.Error("failed to install window event hooks", "error", err)
		}
	}
	s.watched.Store(s.deps.Discovery.DiscoverPrimary().Handle)
}

func (s *Scheduler) stopHook() {
	if s.deps.Hook != nil {
		s.deps.Hook.Stop()
	}
}

func (s *Scheduler) restartHook() {
	s.stopHook()
	s.startHook()
}

// dispatch hands f to the GUI goroutine. Work queued before StopMonitoring
// but run after it is dropped.
func (s *Scheduler) dispatch(f func()) {
	s.deps.Dispatch(func() {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			f()
		}
	})
}

func (s *Scheduler) hideQuietly() {
	defer func() { _ = recover() }()
	if s.deps.Widget.IsVisible() {
		s.deps.Widget.SetVisible(false)
	}
}

func (s *Scheduler) suppressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menuOpen || s.dragging || s.paused
}

func (s *Scheduler) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Scheduler) inCooldown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastImmediate.IsZero() && s.now().Sub(s.lastImmediate) < s.opts.ImmediateHideCooldown
}
