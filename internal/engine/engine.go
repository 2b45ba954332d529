// Package engine implements the columnar execution substrate a job runs
// against (§1, §4.4): a local, embedded engine for small/ungoverned jobs and
// a cluster engine that ships leaf operators to a remote executor over
// Arrow Flight when a cluster is reachable.
package engine

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/kallahq/kalla/internal/registry"
)

// Mode reports which substrate an Engine is backed by, surfaced as
// last_engine_mode by the job runner's /ready endpoint after §4.4 stage 2
// ("engine selection").
type Mode int

const (
	ModeLocal Mode = iota
	ModeCluster
)

func (m Mode) String() string {
	if m == ModeCluster {
		return "cluster"
	}
	return "local"
}

// Engine is the uniform surface a job runs its match_sql against,
// regardless of which substrate backed the probe in stage 2.
type Engine interface {
	Mode() Mode
	// Probe reports whether the substrate is reachable within the caller's
	// context budget. A cluster engine's probe failing (error or deadline)
	// means the job must fall back to a local engine, per §4.4 — never a
	// job failure by itself.
	Probe(ctx context.Context) error
	// RegisterTable makes reg queryable under alias and returns its row
	// count if known (0 if not, e.g. object-store sources before a scan).
	RegisterTable(ctx context.Context, alias string, reg *registry.Registration) (int64, error)
	// Query runs sql (already rewritten for this engine's mode, if needed)
	// and returns a streaming reader over the result batches.
	Query(ctx context.Context, sql string) (array.RecordReader, error)
	Close() error
}
