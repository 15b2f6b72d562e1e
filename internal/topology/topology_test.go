package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupedByKindContiguous(t *testing.T) {
	tp, err := New(Counts{Host: 2, SLB: 1, GS: 1, MDS: 1, CCS: 1, BSS: 3}, GroupedByKind)
	require.NoError(t, err)

	assert.Equal(t, 9, tp.TotalRanks())
	assert.Equal(t, 0, tp.MustRankOf(Host, 0))
	assert.Equal(t, 1, tp.MustRankOf(Host, 1))
	assert.Equal(t, 2, tp.MustRankOf(SLB, 0))
	assert.Equal(t, 3, tp.MustRankOf(GS, 0))
	assert.Equal(t, 4, tp.MustRankOf(MDS, 0))
	assert.Equal(t, 5, tp.MustRankOf(CCS, 0))
	assert.Equal(t, 6, tp.MustRankOf(BSS, 0))
	assert.Equal(t, 8, tp.MustRankOf(BSS, 2))
}

func TestOutOfRange(t *testing.T) {
	tp, err := New(Counts{Host: 1, SLB: 1, GS: 1, MDS: 1, CCS: 1, BSS: 1}, GroupedByKind)
	require.NoError(t, err)

	_, err = tp.RankOf(Host, 1)
	assert.Error(t, err)
}

func TestConfigInvalid(t *testing.T) {
	_, err := New(Counts{Host: 0, SLB: 1, GS: 1, MDS: 1, CCS: 1, BSS: 1}, GroupedByKind)
	assert.Error(t, err)
}

// Scenario 5 from spec.md §8: counts (3,2,2,2,2,3) produce a bijection
// onto [0,14) under the fat-tree strategy.
func TestFatTreeIsBijection(t *testing.T) {
	tp, err := New(Counts{Host: 3, SLB: 2, GS: 2, MDS: 2, CCS: 2, BSS: 3}, FatTree)
	require.NoError(t, err)

	total := tp.TotalRanks()
	require.Equal(t, 14, total)

	seen := make(map[int]bool, total)
	for _, k := range kindOrder {
		for i := 0; i < tp.Count(k); i++ {
			r := tp.MustRankOf(k, i)
			assert.False(t, seen[r], "rank %d assigned twice", r)
			assert.GreaterOrEqual(t, r, 0)
			assert.Less(t, r, total)
			seen[r] = true
		}
	}
	assert.Len(t, seen, total)
}

func TestNameMapRoundTrip(t *testing.T) {
	tp, err := New(Counts{Host: 1, SLB: 1, GS: 1, MDS: 1, CCS: 1, BSS: 1}, GroupedByKind)
	require.NoError(t, err)

	nm := tp.NameMap()
	assert.Equal(t, "Host 0", nm[0])
	assert.Equal(t, "BSS 0", nm[5])

	raw, err := tp.WriteNameMap()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"0":"Host 0"`)
}
