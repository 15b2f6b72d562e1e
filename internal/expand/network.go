package expand

import "github.com/TrimVis/DirectDriveGoalCreator/internal/rankbuilder"

// Network is everything an interaction expansion needs from the
// orchestrator: rank lookups for each node kind, tag/next-node
// allocation, and access to each rank's builder. internal/orchestrator
// implements this by composing internal/topology, internal/slicemap, and
// internal/alloc; expand never imports any of them directly so the
// protocol logic stays testable against a fake.
type Network interface {
	Builder(rank int) rankbuilder.Builder

	HostRank(hostID int) int
	SLBRank(index int) int
	GSRank(index int) int
	MDSRank(index int) int
	CCSRank(index int) int
	BSSRank(index int) int

	NextTag() int64
	NextSLB() int
	NextGS() int
	NextMDS() int
	NextCCS() int
	// NextBSS returns a replica index within replicas (already reduced to
	// the caller's slice's actual replica block, not the run's total BSS
	// count — see internal/alloc.Allocator.NextBSS for why the reduction
	// happens in two stages).
	NextBSS(sliceID int, replicaCount int) int

	// ResolveSlices maps a byte range to the slices it touches and how
	// many bytes each slice owes (internal/slicemap.SliceMap.Resolve).
	ResolveSlices(start, length int64) []SliceExtent
	// CCSForSlice and ReplicasForSlice surface slice ownership
	// (internal/slicemap.Ownership).
	CCSForSlice(sliceID int) int
	ReplicasForSlice(sliceID int) []int
}

// SliceExtent is one slice's contribution to a resolved address range;
// it mirrors internal/slicemap.Resolved without importing that package.
type SliceExtent struct {
	SliceID int
	Size    int64
}
