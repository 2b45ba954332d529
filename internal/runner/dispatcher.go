package runner

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kallahq/kalla/internal/adapter/observability"
	"github.com/kallahq/kalla/internal/config"
	"github.com/kallahq/kalla/internal/engine"
	"github.com/kallahq/kalla/internal/model"
	"github.com/kallahq/kalla/internal/scan"
	"github.com/kallahq/kalla/internal/wire"
)

// Dispatcher owns the bounded job-submission channel and the
// max_concurrent_jobs semaphore of §5: HTTP intake enqueues, a single
// dispatch loop drains the channel and spawns one goroutine per admitted
// job, gated by the semaphore.
type Dispatcher struct {
	cfg      config.Config
	jobCh    chan *model.JobRequest
	sem      *semaphore.Weighted
	table    *Table
	notifier *Notifier
	codec    *wire.Codec
	objCfg   scan.ObjectStoreConfig

	// lastEngineMode records the mode selected by the most recent
	// selectEngine call, for the /ready handler to surface.
	lastEngineMode atomic.Value // engine.Mode
}

// NewDispatcher wires the bounded channel (capacity cfg.JobQueueCapacity)
// and semaphore (weight cfg.MaxConcurrentJobs) described above.
func NewDispatcher(cfg config.Config, codec *wire.Codec) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		jobCh:    make(chan *model.JobRequest, cfg.JobQueueCapacity),
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
		table:    NewTable(),
		notifier: NewNotifier(cfg),
		codec:    codec,
		objCfg: scan.ObjectStoreConfig{
			Region:    cfg.ObjectStoreRegion,
			AccessKey: cfg.ObjectStoreAccessKey,
			SecretKey: cfg.ObjectStoreSecretKey,
			Endpoint:  cfg.ObjectStoreEndpoint,
			AllowHTTP: cfg.ObjectStoreAllowHTTP,
		},
	}
}

// Submit enqueues req, returning false if the bounded channel is full
// (§4.4 stage 0: the caller translates this into model.ErrQueueFull/503).
func (d *Dispatcher) Submit(req *model.JobRequest) bool {
	select {
	case d.jobCh <- req:
		observability.DrainJob()
		d.table.Put(&Record{RunID: req.RunID, Status: StatusQueued, CallbackURL: req.CallbackURL, StartedAt: time.Now(), LastUpdated: time.Now()})
		return true
	default:
		return false
	}
}

// Run drains the job channel until ctx is cancelled, acquiring the
// concurrency semaphore before spawning each job's pipeline goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-d.jobCh:
			if !ok {
				return
			}
			if err := d.sem.Acquire(ctx, 1); err != nil {
				return
			}
			observability.AcquirePermit()
			go func(req *model.JobRequest) {
				defer d.sem.Release(1)
				d.runJob(ctx, req)
			}(req)
		}
	}
}

// RunSweeper runs the stuck-job sweeper until ctx is cancelled, per §4.4's
// sweep-interval/max-processing-age configuration.
func (d *Dispatcher) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.StuckJobSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepOnce()
		}
	}
}

// QueueDepth reports the number of jobs currently sitting in the bounded
// submission channel, and QueueCapacity its configured capacity — together
// what /ready reports for queue headroom.
func (d *Dispatcher) QueueDepth() int    { return len(d.jobCh) }
func (d *Dispatcher) QueueCapacity() int { return cap(d.jobCh) }

// LastEngineMode reports the engine mode selected by the most recently
// dispatched job, or "unknown" before any job has run.
func (d *Dispatcher) LastEngineMode() string {
	if v := d.lastEngineMode.Load(); v != nil {
		return v.(engine.Mode).String()
	}
	return "unknown"
}

func (d *Dispatcher) sweepOnce() {
	cutoff := time.Now().Add(-d.cfg.StuckJobMaxProcessingAge)
	for _, rec := range d.table.StuckSince(cutoff) {
		slog.Warn("sweeping stuck job", slog.String("run_id", rec.RunID), slog.Time("last_updated", rec.LastUpdated))
		d.table.SetStatus(rec.RunID, StatusFailed, time.Now())
		observability.FailJob()
		d.notifier.SendError(context.Background(), rec.CallbackURL, ErrorCallback{
			RunID: rec.RunID,
			Error: "job exceeded maximum processing age and was swept",
		})
	}
}
