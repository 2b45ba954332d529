package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallahq/kalla/internal/scan"
)

func TestPartitionRows_ZeroTotalOrZeroN(t *testing.T) {
	assert.Empty(t, scan.PartitionRows(0, 3))
	assert.Empty(t, scan.PartitionRows(10, 0))
}

func TestPartitionRows_TenRowsThreeParts(t *testing.T) {
	got := scan.PartitionRows(10, 3)
	require.Len(t, got, 3)
	assert.Equal(t, scan.RowRange{Offset: 0, Limit: 3}, got[0])
	assert.Equal(t, scan.RowRange{Offset: 3, Limit: 3}, got[1])
	assert.Equal(t, scan.RowRange{Offset: 6, Limit: 4}, got[2])

	var sum int64
	for _, r := range got {
		sum += r.Limit
	}
	assert.Equal(t, int64(10), sum)
}

func TestPartitionRows_NExceedsTotal(t *testing.T) {
	got := scan.PartitionRows(2, 5)
	require.Len(t, got, 2)
	var sum int64
	for _, r := range got {
		sum += r.Limit
	}
	assert.Equal(t, int64(2), sum)
}

func TestPartitionBytes_CoversWithoutOverlap(t *testing.T) {
	got := scan.PartitionBytes(130, 3)
	require.NotEmpty(t, got)
	assert.Equal(t, int64(0), got[0].Start)
	assert.Equal(t, int64(130), got[len(got)-1].End)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].End, got[i].Start)
	}
}

func TestPartitionBytes_ZeroTotalOrZeroN(t *testing.T) {
	assert.Empty(t, scan.PartitionBytes(0, 3))
	assert.Empty(t, scan.PartitionBytes(100, 0))
}
