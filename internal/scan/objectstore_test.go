package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPartitionedCSVCoversEveryRowExactlyOnce reproduces the §8 scenario:
// header "id,name,amount\n" followed by 9 data rows (109 bytes with these
// rows), partitioned 1, 2, 3, 4 and 9 ways. Every data row must be parsed by
// exactly one partition with no duplicates and no losses.
func TestPartitionedCSVCoversEveryRowExactlyOnce(t *testing.T) {
	header := "id,name,amount"
	rows := []string{
		"1,alice,10", "2,bob,20", "3,carol,30",
		"4,dave,40", "5,erin,50", "6,frank,60",
		"7,grace,70", "8,heidi,80", "9,ivan,90",
	}
	var full string
	full = header + "\n"
	for _, r := range rows {
		full += r + "\n"
	}

	for _, n := range []int{1, 2, 3, 4, 9} {
		n := n
		t.Run("", func(t *testing.T) {
			ranges := PartitionBytes(int64(len(full)), n)
			require.NotEmpty(t, ranges)

			seen := map[string]int{}
			for i, r := range ranges {
				part := full[r.Start:r.End]
				records, err := parsePartitionCSV(header, []byte(part))
				require.NoError(t, err)
				for _, rec := range records {
					key := rec[0] + "," + rec[1] + "," + rec[2]
					seen[key]++
				}
				_ = i
			}

			assert.Len(t, seen, len(rows))
			for _, r := range rows {
				assert.Equal(t, 1, seen[r], "row %q must be parsed exactly once", r)
			}
		})
	}
}

func TestParsePartitionCSV_FirstPartitionDropsHeader(t *testing.T) {
	header := "id,name"
	body := "id,name\n1,a\n2,b\n"
	records, err := parsePartitionCSV(header, []byte(body))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"1", "a"}, records[0])
}

func TestParsePartitionCSV_MidPartitionDropsFragment(t *testing.T) {
	header := "id,name"
	// Simulates a range starting mid-row: the leading fragment is discarded.
	body := "b\n2,c\n3,d\n"
	records, err := parsePartitionCSV(header, []byte(body))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"2", "c"}, records[0])
	assert.Equal(t, []string{"3", "d"}, records[1])
}
