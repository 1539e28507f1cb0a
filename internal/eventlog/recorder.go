// Package eventlog records committed ledger events into a storage.EventLog
// off the ledger's critical section.
package eventlog

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"incentive-token/internal/domain"
	"incentive-token/internal/observability"
	"incentive-token/internal/storage"
)

// Recorder is a ledger observer that buffers events and writes them to an
// event log in batches. OnEvent never blocks; when the buffer is full the
// event is dropped and counted.
type Recorder struct {
	log           storage.EventLog
	events        chan domain.Event
	batchSize     int
	maxPending    int
	flushInterval time.Duration
	logger        *log.Logger

	pending  []*domain.Event
	dropped  atomic.Int64
	recorded atomic.Int64
}

// RecorderOptions contains configuration for creating a Recorder.
type RecorderOptions struct {
	Log           storage.EventLog
	BufferSize    int           // Default: 1024 - channel capacity between ledger and recorder
	BatchSize     int           // Default: 100 - flush when this many events are pending
	MaxPending    int           // Default: 10000 - oldest events are dropped past this while the log is failing
	FlushInterval time.Duration // Default: 1s - force flush pending events periodically
	Logger        *log.Logger
}

// NewRecorder creates a new event recorder. Call Run to start writing.
func NewRecorder(opts RecorderOptions) *Recorder {
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	maxPending := opts.MaxPending
	if maxPending <= 0 {
		maxPending = 10000
	}
	if maxPending < batchSize {
		maxPending = batchSize
	}

	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Recorder{
		log:           opts.Log,
		events:        make(chan domain.Event, bufferSize),
		batchSize:     batchSize,
		maxPending:    maxPending,
		flushInterval: flushInterval,
		logger:        logger,
	}
}

// OnEvent implements ledger.Observer.
func (r *Recorder) OnEvent(e domain.Event) {
	select {
	case r.events <- e:
		observability.UpdateEventBuffer(len(r.events))
	default:
		r.dropped.Add(1)
		observability.RecordEventsDropped(1)
		r.logger.Printf("Event buffer full, dropped event seq=%d kind=%s", e.Seq, e.Kind)
	}
}

// Dropped returns the number of events dropped so far.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Recorded returns the number of events written so far.
func (r *Recorder) Recorded() int64 {
	return r.recorded.Load()
}

// Run writes buffered events until ctx is cancelled, then drains the buffer
// with one final flush.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	r.logger.Printf("Event recorder started, batch size: %d, flush interval: %v", r.batchSize, r.flushInterval)

	for {
		select {
		case <-ctx.Done():
			r.drain()
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.flush(flushCtx)
			cancel()
			if n := len(r.pending); n > 0 {
				r.dropped.Add(int64(n))
				observability.RecordEventsDropped(n)
				r.logger.Printf("Event recorder stopping with %d unwritten events", n)
			}
			r.logger.Println("Event recorder stopping...")
			return ctx.Err()

		case e := <-r.events:
			r.add(e)
			if len(r.pending) >= r.batchSize {
				r.flush(ctx)
			}

		case <-ticker.C:
			r.flush(ctx)
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case e := <-r.events:
			r.add(e)
		default:
			return
		}
	}
}

func (r *Recorder) add(e domain.Event) {
	ev := e
	r.pending = append(r.pending, &ev)
	if over := len(r.pending) - r.maxPending; over > 0 {
		r.pending = r.pending[over:]
		r.dropped.Add(int64(over))
		observability.RecordEventsDropped(over)
	}
	observability.UpdateEventBuffer(len(r.events) + len(r.pending))
}

// flush writes pending events. On failure they stay pending for the next
// attempt. A batch rejected for a duplicate id is retried one event at a
// time so a single replayed event cannot block the rest.
func (r *Recorder) flush(ctx context.Context) {
	if len(r.pending) == 0 {
		return
	}

	err := r.log.AppendBulk(ctx, r.pending)
	switch {
	case err == nil:
		r.written(len(r.pending))
		r.pending = r.pending[:0]

	case errors.Is(err, storage.ErrDuplicateKey):
		var retry []*domain.Event
		written := 0
		for _, e := range r.pending {
			err := r.log.Append(ctx, e)
			switch {
			case err == nil:
				written++
			case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, storage.ErrInvalidInput):
				r.logger.Printf("Skipping event %s: %v", e.ID, err)
			default:
				retry = append(retry, e)
			}
		}
		r.written(written)
		r.pending = append(r.pending[:0], retry...)

	default:
		r.logger.Printf("Failed to write %d events: %v", len(r.pending), err)
	}

	observability.UpdateEventBuffer(len(r.events) + len(r.pending))
}

func (r *Recorder) written(n int) {
	if n == 0 {
		return
	}
	r.recorded.Add(int64(n))
	observability.RecordEventsRecorded(n)
}
