package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_PutGet(t *testing.T) {
	tbl := NewTable()
	tbl.Put(&Record{RunID: "r1", Status: StatusQueued})

	got := tbl.Get("r1")
	require.NotNil(t, got)
	assert.Equal(t, StatusQueued, got.Status)
	assert.Nil(t, tbl.Get("unknown"))
}

func TestTable_SetStatus_UpdatesExistingRecord(t *testing.T) {
	tbl := NewTable()
	tbl.Put(&Record{RunID: "r1", Status: StatusQueued})

	now := time.Now()
	tbl.SetStatus("r1", StatusCompleted, now)

	got := tbl.Get("r1")
	require.NotNil(t, got)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.True(t, got.LastUpdated.Equal(now))
}

func TestTable_SetStatus_UnknownRunIDIsNoop(t *testing.T) {
	tbl := NewTable()
	assert.NotPanics(t, func() {
		tbl.SetStatus("missing", StatusFailed, time.Now())
	})
}

func TestTable_StuckSince_OnlyReturnsOldProcessingRecords(t *testing.T) {
	tbl := NewTable()
	old := time.Now().Add(-time.Hour)
	recent := time.Now()

	tbl.Put(&Record{RunID: "stuck", Status: StatusProcessing, LastUpdated: old})
	tbl.Put(&Record{RunID: "fresh", Status: StatusProcessing, LastUpdated: recent})
	tbl.Put(&Record{RunID: "done", Status: StatusCompleted, LastUpdated: old})

	cutoff := time.Now().Add(-time.Minute)
	stuck := tbl.StuckSince(cutoff)

	require.Len(t, stuck, 1)
	assert.Equal(t, "stuck", stuck[0].RunID)
}
