package evidence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallahq/kalla/internal/model"
)

func TestOutputPath_MatchesCanonicalLayout(t *testing.T) {
	got := OutputPath("/var/lib/kalla/staging", "run-123")
	assert.Equal(t, filepath.Join("/var/lib/kalla/staging", "run-123", "matched.parquet"), got)
}

func TestWriteMatched_WritesFileAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	records := []model.MatchedRecord{
		{MatchID: "m1", LeftKey: "1", RightKey: "1", RuleName: model.RuleNameMatchSQL, Confidence: 1.0, MatchedAt: time.Unix(0, 0).UTC()},
	}

	path, err := WriteMatched(dir, "run-1", records)
	require.NoError(t, err)
	info1, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info1.Size(), int64(0))

	// Re-running the same write must overwrite cleanly, not append or error.
	path2, err := WriteMatched(dir, "run-1", records)
	require.NoError(t, err)
	assert.Equal(t, path, path2)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp files after rename")
}

func TestWriteSidecar_WritesJSONAlongsideParquetDir(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteMatched(dir, "run-2", nil)
	require.NoError(t, err)

	err = WriteSidecar(dir, "run-2", SidecarMetadata{RunID: "run-2", MatchedCount: 3, UnmatchedLeft: 1, UnmatchedRight: 2})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "run-2", "metadata.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-2"`)
}
