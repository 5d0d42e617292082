package indexer

import "fmt"

// HeightRange represents an inclusive height range.
type HeightRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a height range into batches spanning at most span heights.
func SplitRange(from, to, span uint64) ([]HeightRange, error) {
	if span == 0 {
		return nil, fmt.Errorf("batch span must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to height must be >= from height")
	}

	ranges := make([]HeightRange, 0)
	start := from
	for start <= to {
		remaining := to - start + 1
		var end uint64
		if remaining <= span {
			end = to
		} else {
			end = start + span - 1
		}
		ranges = append(ranges, HeightRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}

// batchSpan converts a per-batch height count into a height span, capping on overflow.
func batchSpan(batchSize, stride uint64) uint64 {
	if batchSize == 0 || stride == 0 {
		return 0
	}
	if batchSize > ^uint64(0)/stride {
		return ^uint64(0)
	}
	return batchSize * stride
}

// nextAligned returns the first height of the from, from+stride, ... grid that
// lies after last. ok is false when that height does not fit in a uint64.
func nextAligned(from, last, stride uint64) (uint64, bool) {
	if last < from {
		return from, true
	}
	steps := (last-from)/stride + 1
	if steps > (^uint64(0)-from)/stride {
		return 0, false
	}
	return from + steps*stride, true
}

// lastAligned returns the highest grid height within r, assuming r.From is on the grid.
func lastAligned(r HeightRange, stride uint64) uint64 {
	return r.From + ((r.To-r.From)/stride)*stride
}
