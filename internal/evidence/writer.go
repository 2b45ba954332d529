// Package evidence writes a job's matched records to durable, idempotent
// Parquet output under the configured staging path (§4.4 stage 7).
package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/kallahq/kalla/internal/model"
)

// matchedSchema is the fixed output schema for matched.parquet.
var matchedSchema = arrow.NewSchema([]arrow.Field{
	{Name: "match_id", Type: arrow.BinaryTypes.String},
	{Name: "left_key", Type: arrow.BinaryTypes.String},
	{Name: "right_key", Type: arrow.BinaryTypes.String},
	{Name: "rule_name", Type: arrow.BinaryTypes.String},
	{Name: "confidence", Type: arrow.PrimitiveTypes.Float64},
	{Name: "matched_at", Type: arrow.BinaryTypes.String},
}, nil)

// OutputPath returns the canonical matched.parquet path for a run under
// stagingPath, per §4.4 stage 7's "<staging_path>/<run_id>/matched.parquet".
func OutputPath(stagingPath, runID string) string {
	return filepath.Join(stagingPath, runID, "matched.parquet")
}

// WriteMatched snappy-compresses records into OutputPath(stagingPath, runID),
// writing to a temp file in the same directory and renaming over the final
// path so a retried or re-dispatched job overwrites cleanly rather than
// corrupting a partial file (§4.4's "idempotent" requirement). An empty
// records slice performs no write at all, per §4.4 stage 7, and returns "".
func WriteMatched(stagingPath, runID string, records []model.MatchedRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	finalPath := OutputPath(stagingPath, runID)
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("op=evidence.WriteMatched: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "matched-*.parquet.tmp")
	if err != nil {
		return "", fmt.Errorf("op=evidence.WriteMatched: tempfile: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if err := writeParquet(tmp, records); err != nil {
		tmp.Close()
		return "", fmt.Errorf("op=evidence.WriteMatched: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("op=evidence.WriteMatched: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("op=evidence.WriteMatched: rename: %w", err)
	}
	return finalPath, nil
}

func writeParquet(f *os.File, records []model.MatchedRecord) error {
	mem := memory.DefaultAllocator
	b := array.NewRecordBuilder(mem, matchedSchema)
	defer b.Release()

	for _, r := range records {
		b.Field(0).(*array.StringBuilder).Append(r.MatchID)
		b.Field(1).(*array.StringBuilder).Append(r.LeftKey)
		b.Field(2).(*array.StringBuilder).Append(r.RightKey)
		b.Field(3).(*array.StringBuilder).Append(r.RuleName)
		b.Field(4).(*array.Float64Builder).Append(r.Confidence)
		b.Field(5).(*array.StringBuilder).Append(r.MatchedAt.Format("2006-01-02T15:04:05.999999999Z07:00"))
	}
	rec := b.NewRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrProps := pqarrow.DefaultWriterProps()
	writer, err := pqarrow.NewFileWriter(matchedSchema, f, props, arrProps)
	if err != nil {
		return fmt.Errorf("new parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("write batch: %w", err)
	}
	return writer.Close()
}

// SidecarMetadata is the optional per-run JSON summary written alongside
// matched.parquet, used by callers that want run stats without scanning the
// parquet file itself.
type SidecarMetadata struct {
	RunID          string `json:"run_id"`
	MatchedCount   int    `json:"matched_count"`
	UnmatchedLeft  int64  `json:"unmatched_left"`
	UnmatchedRight int64  `json:"unmatched_right"`
}

// WriteSidecar writes metadata.json next to matched.parquet for runID,
// overwriting any previous sidecar.
func WriteSidecar(stagingPath, runID string, meta SidecarMetadata) error {
	dir := filepath.Dir(OutputPath(stagingPath, runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("op=evidence.WriteSidecar: mkdir: %w", err)
	}
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("op=evidence.WriteSidecar: %w", err)
	}
	path := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("op=evidence.WriteSidecar: %w", err)
	}
	return nil
}
