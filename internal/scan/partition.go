// Package scan implements Kalla's two custom source-scan operators (C1):
// a partitioned relational LIMIT/OFFSET scan and a byte-range object-store
// CSV scan. Both ship in an eager (local table-provider) and a lazy
// (cluster leaf-operator) form over identical partition-range arithmetic.
package scan

// RowRange is one row-count partition: Offset rows are skipped, then Limit
// rows are taken.
type RowRange struct {
	Offset int64
	Limit  int64
}

// ByteRange is one byte-offset partition over [Start, End).
type ByteRange struct {
	Start int64
	End   int64
}

// PartitionRows splits a row total T into up to N row ranges per §4.1: if
// T==0 or N==0, no partitions are produced; otherwise k=min(N,T) partitions
// are produced, each of size T/k, with the remainder T%k absorbed by the
// last partition. Coverage invariant: the sum of all Limits equals T.
func PartitionRows(total int64, n int) []RowRange {
	if total <= 0 || n <= 0 {
		return nil
	}
	k := n
	if int64(k) > total {
		k = int(total)
	}
	base := total / int64(k)
	rem := total % int64(k)

	ranges := make([]RowRange, 0, k)
	var offset int64
	for i := 0; i < k; i++ {
		limit := base
		if i == k-1 {
			limit += rem
		}
		ranges = append(ranges, RowRange{Offset: offset, Limit: limit})
		offset += limit
	}
	return ranges
}

// PartitionBytes splits a byte total T into up to N byte ranges per §4.1:
// if T==0 or N==0, no partitions are produced; otherwise k=min(N,T) ranges
// are produced, each [i*base, (i+1)*base), with the last partition's End
// pinned exactly to T so the remainder is absorbed there instead of being
// dropped. Coverage invariant: the union of all ranges is [0,T) with no gaps
// or overlaps.
func PartitionBytes(total int64, n int) []ByteRange {
	if total <= 0 || n <= 0 {
		return nil
	}
	k := n
	if int64(k) > total {
		k = int(total)
	}
	base := total / int64(k)

	ranges := make([]ByteRange, 0, k)
	var start int64
	for i := 0; i < k; i++ {
		end := start + base
		if i == k-1 {
			end = total
		}
		ranges = append(ranges, ByteRange{Start: start, End: end})
		start = end
	}
	return ranges
}
