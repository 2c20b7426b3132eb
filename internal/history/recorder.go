package history

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"netspeedtray/internal/netspeed"
)

// MinRecordableRate drops idle interfaces from the history.
const MinRecordableRate = 1.0

// RecorderOptions tunes batching and maintenance.
type RecorderOptions struct {
	BatchSize           int
	FlushInterval       time.Duration
	MaintenanceInterval time.Duration
	Buffer              int
	// KeepDays is consulted before every maintenance run so that config
	// edits apply without a restart.
	KeepDays func() int
}

// DefaultRecorderOptions returns the production tuning.
func DefaultRecorderOptions() RecorderOptions {
	return RecorderOptions{
		BatchSize:           60,
		FlushInterval:       10 * time.Second,
		MaintenanceInterval: time.Hour,
		Buffer:              256,
		KeepDays:            func() int { return 30 },
	}
}

// Recorder buffers speed readings and writes them to a Store in batches from
// its own goroutine.
type Recorder struct {
	store  *Store
	opts   RecorderOptions
	logger *slog.Logger
	in     chan netspeed.Speed
	now    func() time.Time
}

// NewRecorder creates a recorder. Zero options fall back to the defaults.
func NewRecorder(store *Store, opts RecorderOptions, logger *slog.Logger) *Recorder {
	def := DefaultRecorderOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = def.FlushInterval
	}
	if opts.MaintenanceInterval <= 0 {
		opts.MaintenanceInterval = def.MaintenanceInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = def.Buffer
	}
	if opts.KeepDays == nil {
		opts.KeepDays = def.KeepDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		opts:   opts,
		logger: logger.With("component", "history"),
		in:     make(chan netspeed.Speed, opts.Buffer),
		now:    time.Now,
	}
}

// Add queues a reading. It never blocks; readings are dropped when the
// buffer is full.
func (r *Recorder) Add(s netspeed.Speed) {
	select {
	case r.in <- s:
	default:
		r.logger.Debug("history buffer full, dropping sample")
	}
}

// Run writes batches until ctx is cancelled, then flushes what is left.
// Maintenance runs once at start and then every MaintenanceInterval.
func (r *Recorder) Run(ctx context.Context) {
	flush := time.NewTicker(r.opts.FlushInterval)
	defer flush.Stop()
	maint := time.NewTicker(r.opts.MaintenanceInterval)
	defer maint.Stop()

	r.maintain(ctx)

	batch := make([]Sample, 0, r.opts.BatchSize)
	write := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := r.store.Record(ctx, batch); err != nil {
			r.logger.Warn("failed to persist speed batch", "samples", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case s := <-r.in:
					batch = append(batch, Samples(s)...)
				default:
					write(context.Background())
					return
				}
			}
		case s := <-r.in:
			batch = append(batch, Samples(s)...)
			if len(batch) >= r.opts.BatchSize {
				write(ctx)
			}
		case <-flush.C:
			write(ctx)
		case <-maint.C:
			write(ctx)
			r.maintain(ctx)
		}
	}
}

func (r *Recorder) maintain(ctx context.Context) {
	if _, err := r.store.Maintain(ctx, r.now(), r.opts.KeepDays()); err != nil {
		r.logger.Warn("history maintenance failed", "error", err)
	}
}

// Samples flattens a reading into per-interface rows, skipping idle
// interfaces. Rows are ordered by interface name.
func Samples(s netspeed.Speed) []Sample {
	names := make([]string, 0, len(s.PerInterface))
	for name := range s.PerInterface {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Sample, 0, len(names))
	for _, name := range names {
		rate := s.PerInterface[name]
		if rate.Upload < MinRecordableRate && rate.Download < MinRecordableRate {
			continue
		}
		out = append(out, Sample{Time: s.Time, Interface: name, Upload: rate.Upload, Download: rate.Download})
	}
	return out
}
