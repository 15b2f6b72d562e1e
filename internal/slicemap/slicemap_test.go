package slicemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSliceCount(t *testing.T) {
	m := Build(4096, 4096)
	assert.Equal(t, 1, m.Count())

	m2 := Build(1024, 512)
	assert.Equal(t, 2, m2.Count())
}

// Scenario 1 from spec.md §8: disk 4096, slice 4096, read(addr=0, len=4096)
// resolves to exactly one slice covering the whole range.
func TestResolveMinimalRead(t *testing.T) {
	m := Build(4096, 4096)
	res := m.Resolve(0, 4096)
	assert.Equal(t, []Resolved{{SliceID: 0, Size: 4096}}, res)
}

// Scenario 2 from spec.md §8: slice 512, disk 1024, write(addr=256,len=512)
// resolves to [(slice 0, 256), (slice 1, 256)].
func TestResolveTwoSlices(t *testing.T) {
	m := Build(1024, 512)
	res := m.Resolve(256, 512)
	assert.Equal(t, []Resolved{{SliceID: 0, Size: 256}, {SliceID: 1, Size: 256}}, res)
}

func TestResolveZeroLength(t *testing.T) {
	m := Build(4096, 1024)
	assert.Nil(t, m.Resolve(0, 0))
}

func TestResolveTruncatesAtLastSlice(t *testing.T) {
	m := Build(1024, 512) // 2 slices: [0,512) [512,1024)
	res := m.Resolve(256, 10000)
	assert.Len(t, res, 2)
	assert.Equal(t, SliceID(1), res[1].SliceID)
}

// Slice-coverage invariant, spec.md §8: accumulated size equals length
// whenever length > 0 and start+length <= diskSize.
func TestSliceCoverageInvariant(t *testing.T) {
	m := Build(4096, 256)
	cases := []struct{ start, length int64 }{
		{0, 4096}, {10, 100}, {255, 1}, {256, 256}, {1, 4095},
	}
	for _, c := range cases {
		res := m.Resolve(c.start, c.length)
		var total int64
		for _, r := range res {
			total += r.Size
		}
		assert.Equal(t, c.length, total, "start=%d length=%d", c.start, c.length)
	}
}

func TestBuildOwnershipPartitionsBSS(t *testing.T) {
	o := BuildOwnership(2, 5) // factor = ceil(5/2) = 3
	assert.Equal(t, []int{0, 1, 2}, o.ReplicasFor(0))
	assert.Equal(t, []int{3, 4}, o.ReplicasFor(1))
	assert.Equal(t, 0, o.CCSFor(0))
	assert.Equal(t, 1, o.CCSFor(1))
	assert.Equal(t, 0, o.CCSFor(2))
}
