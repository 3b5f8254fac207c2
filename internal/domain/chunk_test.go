package domain_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/skogdata/forest-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionIDs_ExactCover(t *testing.T) {
	ids := []int64{7, 3, 9, 1, 5, 2, 8}

	chunks := domain.PartitionIDs(ids, 3)
	require.Len(t, chunks, 3)

	assert.Equal(t, []int64{1, 2, 3}, chunks[0].JoinIDs)
	assert.Equal(t, []int64{5, 7, 8}, chunks[1].JoinIDs)
	assert.Equal(t, []int64{9}, chunks[2].JoinIDs, "final chunk may be shorter")

	seen := make(map[int64]int)
	for _, c := range chunks {
		for _, id := range c.JoinIDs {
			seen[id]++
		}
	}
	require.Len(t, seen, len(ids), "no gaps")
	for id, n := range seen {
		assert.Equal(t, 1, n, "id %d covered exactly once", id)
	}
}

func TestPartitionIDs_Deterministic(t *testing.T) {
	ids := []int64{41, 12, 99, 7, 55, 3, 18, 64}

	first := domain.PartitionIDs(ids, 3)
	second := domain.PartitionIDs(ids, 3)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repartition mismatch (-first +second):\n%s", diff)
	}
}

func TestPartitionIDs_DoesNotMutateInput(t *testing.T) {
	ids := []int64{3, 1, 2}
	domain.PartitionIDs(ids, 2)
	assert.Equal(t, []int64{3, 1, 2}, ids)
}

func TestPartitionIDs_ChunkCount(t *testing.T) {
	// Mirror of the full-scale grid (410,881 features) at reduced size:
	// the chunk count is exact regardless of how the sizes divide.
	for _, tc := range []struct {
		ids  int
		size int
		want int
	}{
		{ids: 4108, size: 100, want: 42},
		{ids: 4100, size: 100, want: 41},
		{ids: 1, size: 100, want: 1},
		{ids: 0, size: 100, want: 0},
	} {
		ids := make([]int64, tc.ids)
		for i := range ids {
			ids[i] = int64(i + 1)
		}
		chunks := domain.PartitionIDs(ids, tc.size)
		assert.Len(t, chunks, tc.want, "%d ids / size %d", tc.ids, tc.size)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
		}
	}
}
