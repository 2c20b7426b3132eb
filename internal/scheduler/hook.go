package scheduler

// EventKind identifies the OS window event behind an Event.
type EventKind int

const (
	// EventForeground fires when the foreground window changes.
	EventForeground EventKind = iota + 1
	// EventMoveSizeEnd fires when a window finishes moving or resizing.
	EventMoveSizeEnd
)

func (k EventKind) String() string {
	switch k {
	case EventForeground:
		return "foreground"
	case EventMoveSizeEnd:
		return "movesize-end"
	}
	return "unknown"
}

// Event is the only value that crosses from the hook thread to the scheduler.
type Event struct {
	Kind   EventKind
	Handle uintptr
}

// Hook delivers window events into a channel. Implementations must never
// block on the send; a full channel drops the event.
type Hook interface {
	Start(events chan<- Event) error
	Stop()
}
