package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kallahq/kalla/internal/adapter/observability"
	"github.com/kallahq/kalla/internal/engine"
	"github.com/kallahq/kalla/internal/evidence"
	"github.com/kallahq/kalla/internal/model"
	"github.com/kallahq/kalla/internal/registry"
)

// runJob executes stages 1-8 of §4.4 for a single admitted job. Stage 0
// (HTTP intake, bounded-channel submission) and the dispatch/semaphore
// handoff already happened in Dispatcher.Submit/Run.
func (d *Dispatcher) runJob(ctx context.Context, req *model.JobRequest) {
	logger := slog.With(slog.String("run_id", req.RunID))
	d.table.SetStatus(req.RunID, StatusProcessing, time.Now())

	eng, err := d.selectEngine(ctx, logger)
	if err != nil {
		d.fail(ctx, req, "engine_selection", err)
		return
	}
	defer eng.Close()
	d.lastEngineMode.Store(eng.Mode())

	rowCounts, err := d.registerSources(ctx, eng, req)
	if err != nil {
		d.fail(ctx, req, "source_registration", fmt.Errorf("%w: %v", model.ErrSourceRegistration, err))
		return
	}

	matchSQL := req.MatchSQL
	if eng.Mode() == engine.ModeCluster || d.cfg.ForceSelectStarRewrite {
		matchSQL = RewriteForCluster(matchSQL)
	}

	reader, err := eng.Query(ctx, matchSQL)
	if err != nil {
		d.fail(ctx, req, "matching", fmt.Errorf("%w: %v", model.ErrMatchSQL, err))
		return
	}
	defer reader.Release()

	leftAlias, rightAlias := req.LeftAlias(), req.RightAlias()
	leftPK := req.PrimaryKeys[leftAlias]
	rightPK := req.PrimaryKeys[rightAlias]

	matched := make([]model.MatchedRecord, 0)
	leftKeys := make(map[string]struct{})
	rightKeys := make(map[string]struct{})
	now := time.Now().UTC()
	rowOffset := 0

	for reader.Next() {
		rec := reader.Record()
		lk := ExtractKeys(rec, leftAlias, leftPK, rowOffset)
		rk := ExtractKeys(rec, rightAlias, rightPK, rowOffset)
		n := int(rec.NumRows())
		rowOffset += n
		for i := 0; i < n; i++ {
			var l, r string
			if i < len(lk) {
				l = lk[i]
			}
			if i < len(rk) {
				r = rk[i]
			}
			leftKeys[l] = struct{}{}
			rightKeys[r] = struct{}{}
			matched = append(matched, model.MatchedRecord{
				MatchID:    uuid.New().String(),
				LeftKey:    l,
				RightKey:   r,
				RuleName:   model.RuleNameMatchSQL,
				Confidence: 1.0,
				MatchedAt:  now,
			})
		}
		matchedCount := int64(len(matched))
		d.notifier.SendProgress(ctx, req.CallbackURL, ProgressCallback{
			Stage: "matching", RunID: req.RunID, Progress: nil, MatchedCount: &matchedCount,
		})
	}
	if err := reader.Err(); err != nil {
		d.fail(ctx, req, "matching", fmt.Errorf("%w: %v", model.ErrMatchSQL, err))
		return
	}

	var unmatchedLeft, unmatchedRight int64
	if len(leftPK) > 0 && len(rightPK) > 0 {
		unmatchedLeft = UnmatchedCount(rowCounts[leftAlias], len(leftKeys))
		unmatchedRight = UnmatchedCount(rowCounts[rightAlias], len(rightKeys))
	}

	outputPath, err := evidence.WriteMatched(d.cfg.StagingPath, req.RunID, matched)
	if err != nil {
		logger.Error("evidence write failed", slog.Any("error", err))
		d.notifier.SendError(ctx, req.CallbackURL, ErrorCallback{
			RunID: req.RunID, Stage: "evidence_write",
			Error: fmt.Errorf("%w: %v", model.ErrEvidenceWrite, err).Error(),
		})
		d.table.SetStatus(req.RunID, StatusFailed, time.Now())
		observability.FailJob()
		return
	}
	_ = evidence.WriteSidecar(d.cfg.StagingPath, req.RunID, evidence.SidecarMetadata{
		RunID: req.RunID, MatchedCount: len(matched), UnmatchedLeft: unmatchedLeft, UnmatchedRight: unmatchedRight,
	})

	d.table.SetStatus(req.RunID, StatusCompleted, time.Now())
	observability.CompleteJob()

	if err := d.notifier.SendCompletion(ctx, req.CallbackURL, CompletionCallback{
		RunID:               req.RunID,
		MatchedCount:        int64(len(matched)),
		UnmatchedLeftCount:  unmatchedLeft,
		UnmatchedRightCount: unmatchedRight,
		OutputPaths:         OutputPaths{Matched: outputPath},
	}); err != nil {
		logger.Error("completion callback exhausted retries", slog.Any("error", err))
	}
}

// selectEngine implements §4.4 stage 2: probe a cluster engine with a bounded
// budget, falling back to a local engine on any probe error or timeout.
// A cluster failure is never a job failure.
func (d *Dispatcher) selectEngine(ctx context.Context, logger *slog.Logger) (engine.Engine, error) {
	if d.cfg.ClusterSchedulerAddr != "" {
		cluster, err := engine.NewClusterEngine(d.cfg.ClusterSchedulerAddr, d.codec)
		if err == nil {
			probeCtx, cancel := context.WithTimeout(ctx, d.cfg.ClusterProbeTimeout)
			probeErr := cluster.Probe(probeCtx)
			cancel()
			if probeErr == nil {
				return cluster, nil
			}
			logger.Warn("cluster probe failed, falling back to local engine", slog.Any("error", probeErr))
			observability.RecordEngineFallback("probe_failed")
			_ = cluster.Close()
		} else {
			observability.RecordEngineFallback("dial_failed")
		}
	}
	return engine.NewLocalEngine()
}

// registerSources runs §4.4 stage 3: sequential source registration, one
// registry.Register call per job source, emitting a staging-progress
// callback (progress = i/n) after each, and returning each alias's row
// count for the unmatched-derivation stage.
func (d *Dispatcher) registerSources(ctx context.Context, eng engine.Engine, req *model.JobRequest) (map[string]int64, error) {
	counts := make(map[string]int64, len(req.Sources))
	n := len(req.Sources)
	for i, src := range req.Sources {
		reg, err := registry.Register(ctx, src.URI, d.cfg.SourcePartitions, src.Filters, d.objCfg)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Alias, err)
		}
		count, err := eng.RegisterTable(ctx, src.Alias, reg)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Alias, err)
		}
		if count == 0 {
			count = reg.RowCount
		}
		counts[src.Alias] = count

		progress := float64(i+1) / float64(n)
		d.notifier.SendProgress(ctx, req.CallbackURL, ProgressCallback{
			Stage: "staging", RunID: req.RunID, Progress: &progress, Source: src.Alias,
		})
	}
	return counts, nil
}

func (d *Dispatcher) fail(ctx context.Context, req *model.JobRequest, stage string, err error) {
	slog.Error("job failed", slog.String("run_id", req.RunID), slog.String("stage", stage), slog.Any("error", err))
	d.table.SetStatus(req.RunID, StatusFailed, time.Now())
	observability.FailJob()
	d.notifier.SendError(ctx, req.CallbackURL, ErrorCallback{
		RunID: req.RunID, Stage: stage, Error: err.Error(),
	})
}
