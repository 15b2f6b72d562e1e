// Package slicemap partitions a logical disk into fixed-size slices and
// assigns CCS/BSS ownership (spec.md §3/§4.2).
package slicemap

import "math"

// SliceID is an index into a SliceMap.
type SliceID = int

// Range is a [Start, End) byte extent covered by one slice.
type Range struct {
	Start, End int64
}

// SliceMap is the ordered list of slice extents for a logical disk: slice
// i covers [i*sliceSize, (i+1)*sliceSize).
type SliceMap struct {
	slices []Range
}

// Build derives a SliceMap from (diskSize, sliceSize): N = ceil(diskSize /
// sliceSize) slices, each of width sliceSize (the last one may run past
// diskSize, matching original_source/trace_to_goal/network.py's
// unconditional `slice_size * (id + 1)` upper bound).
func Build(diskSize, sliceSize int64) *SliceMap {
	n := int(math.Ceil(float64(diskSize) / float64(sliceSize)))
	slices := make([]Range, n)
	for i := 0; i < n; i++ {
		slices[i] = Range{Start: sliceSize * int64(i), End: sliceSize * int64(i+1)}
	}
	return &SliceMap{slices: slices}
}

// Count is the number of slices in the map.
func (m *SliceMap) Count() int { return len(m.slices) }

// Range returns the extent of slice i.
func (m *SliceMap) Range(i SliceID) Range { return m.slices[i] }

// Resolved is one slice's contribution to a resolved (start, length)
// address range: SliceID and the byte count owed to that slice.
type Resolved struct {
	SliceID SliceID
	Size    int64
}

// Resolve returns the ordered list of (sliceID, bytesInSlice) for every
// slice whose extent intersects [start, start+length). Because the slice
// map is ordered, the scan terminates as soon as a slice's start exceeds
// the range end (spec.md §4.2's required early termination). A
// zero-length range resolves to the empty list.
//
// The byte-count formula is min(sliceEnd, rangeEnd) - min(sliceStart,
// rangeStart), which is *not* the standard intersection length
// min(sliceEnd,rangeEnd) - max(sliceStart,rangeStart) when the range
// starts mid-slice. This is preserved verbatim from
// original_source/trace_to_goal/interaction.py's resolve_to_slices_and_sizes
// per spec.md §9's explicit instruction not to silently "fix" it.
func (m *SliceMap) Resolve(start, length int64) []Resolved {
	if length <= 0 {
		return nil
	}
	rangeEnd := start + length

	var out []Resolved
	for sid, r := range m.slices {
		if r.End < start {
			continue
		}
		if rangeEnd < r.Start {
			break
		}
		size := min64(r.End, rangeEnd) - min64(r.Start, start)
		out = append(out, Resolved{SliceID: sid, Size: size})
	}
	return out
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Ownership assigns each slice to a CCS (slice i is owned by CCS i mod
// ccsCount) and each CCS to a contiguous block of BSS replicas.
type Ownership struct {
	ccsCount int
	bssResp  [][]int // bssResp[ccsID] = replica BSS indices
}

// BuildOwnership partitions ccsCount change-coordinators and bssCount
// block-storage replicas per spec.md §3: BSSs split into ccsCount
// consecutive blocks of ceil(bssCount/ccsCount) each; CCS c replicates to
// block c.
func BuildOwnership(ccsCount, bssCount int) *Ownership {
	factor := int(math.Ceil(float64(bssCount) / float64(ccsCount)))
	resp := make([][]int, ccsCount)
	for c := 0; c < ccsCount; c++ {
		block := make([]int, 0, factor)
		for i := 0; i < factor; i++ {
			bssID := c*factor + i
			if bssID < bssCount {
				block = append(block, bssID)
			}
		}
		resp[c] = block
	}
	return &Ownership{ccsCount: ccsCount, bssResp: resp}
}

// CCSFor returns the CCS index owning a given slice.
func (o *Ownership) CCSFor(sliceID SliceID) int {
	return sliceID % o.ccsCount
}

// ReplicasFor returns the BSS indices replicating a given CCS's slices.
func (o *Ownership) ReplicasFor(ccsID int) []int {
	return o.bssResp[ccsID]
}
