package domain

import "slices"

// Chunk is an ordered, non-overlapping batch of join identifiers, the unit
// of scheduling and progress granularity.
type Chunk struct {
	Index   int
	JoinIDs []int64
}

// PartitionIDs sorts the identifier universe once and slices it into
// contiguous chunks of the given size (the final chunk may be shorter).
// The partition covers every identifier exactly once and is deterministic:
// re-running against an unchanged identifier set reproduces the same chunks.
// The input slice is not modified.
func PartitionIDs(ids []int64, size int) []Chunk {
	if len(ids) == 0 || size < 1 {
		return nil
	}

	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	slices.Sort(sorted)

	chunks := make([]Chunk, 0, (len(sorted)+size-1)/size)
	for start := 0; start < len(sorted); start += size {
		end := min(start+size, len(sorted))
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			JoinIDs: sorted[start:end],
		})
	}
	return chunks
}
