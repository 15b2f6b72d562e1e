// Package orchestrator threads internal/topology, internal/slicemap,
// internal/alloc, internal/rankbuilder and internal/expand together into
// one run: it is the "network" object original_source/trace_to_goal's
// DirectDriveNetwork names, rebuilt as a Go struct that owns rank
// builders and implements expand.Network against them (spec.md §4).
package orchestrator

import (
	"github.com/TrimVis/DirectDriveGoalCreator/internal/alloc"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/expand"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/nlog"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/rankbuilder"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/slicemap"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/topology"
)

// Config is everything a Network needs to build its ranks once, up
// front.
type Config struct {
	Counts   topology.Counts
	Strategy topology.Strategy

	DiskSize, SliceSize int64

	Alloc alloc.Config

	// OpDepens gates per-host causal chaining: when true, each
	// read/write's first CCS contact requires the host's previous
	// operation's terminal labels. The mount itself runs exactly once
	// per host regardless of this flag (spec.md §9's open-question
	// resolution); with the flag off, the host's first read/write does not
	// depend on the mount's labels either.
	OpDepens bool

	// SpillDir, when non-empty, switches every rank builder to the
	// spill-to-disk backend rooted under a fresh run directory inside
	// it. Empty keeps everything in memory.
	SpillDir string
}

// Network is one run's live state: topology placement, slice ownership,
// the allocator, and every rank's builder.
type Network struct {
	cfg       Config
	topo      *topology.Topology
	slices    *slicemap.SliceMap
	ownership *slicemap.Ownership
	allocator *alloc.Allocator
	builders  map[int]rankbuilder.Builder
	run       *rankbuilder.RunDir

	knownHosts map[int]bool
	hostDeps   map[int][]string

	stats *runStats
}

// New validates cfg, builds the topology/slice map/allocator, and opens
// one builder per rank (spill or in-memory per cfg.SpillDir).
func New(cfg Config) (*Network, error) {
	topo, err := topology.New(cfg.Counts, cfg.Strategy)
	if err != nil {
		return nil, err
	}
	if cfg.DiskSize <= 0 || cfg.SliceSize <= 0 {
		return nil, ddgerr.ConfigInvalid("disk size (%d) and slice size (%d) must both be positive", cfg.DiskSize, cfg.SliceSize)
	}

	allocCfg := cfg.Alloc
	allocCfg.CCSCount, allocCfg.BSSCount = cfg.Counts.CCS, cfg.Counts.BSS
	allocCfg.GSCount, allocCfg.SLBCount, allocCfg.MDSCount = cfg.Counts.GS, cfg.Counts.SLB, cfg.Counts.MDS
	allocator, err := alloc.New(allocCfg)
	if err != nil {
		return nil, err
	}

	n := &Network{
		cfg:        cfg,
		topo:       topo,
		slices:     slicemap.Build(cfg.DiskSize, cfg.SliceSize),
		ownership:  slicemap.BuildOwnership(cfg.Counts.CCS, cfg.Counts.BSS),
		allocator:  allocator,
		builders:   make(map[int]rankbuilder.Builder, topo.TotalRanks()),
		knownHosts: make(map[int]bool),
		hostDeps:   make(map[int][]string),
		stats:      newRunStats(),
	}

	if cfg.SpillDir != "" {
		run, err := rankbuilder.NewRunDir(cfg.SpillDir)
		if err != nil {
			return nil, err
		}
		n.run = run
	}

	nlog.Infof("building %d rank builders (spill=%v)", topo.TotalRanks(), cfg.SpillDir != "")
	for rank := 0; rank < topo.TotalRanks(); rank++ {
		b, err := n.newBuilder(rank)
		if err != nil {
			return nil, err
		}
		n.builders[rank] = b
	}

	for _, rc := range topo.RanksByKind() {
		n.builders[rc.Rank].AddComment(rc.Comment)
	}

	return n, nil
}

func (n *Network) newBuilder(rank int) (rankbuilder.Builder, error) {
	if n.run == nil {
		return rankbuilder.NewMemBuilder(rank, n.allocator), nil
	}
	return rankbuilder.NewSpillBuilder(n.run, rank, n.allocator)
}

// --- expand.Network -------------------------------------------------

func (n *Network) Builder(rank int) rankbuilder.Builder { return n.builders[rank] }

func (n *Network) HostRank(i int) int { return n.topo.MustRankOf(topology.Host, i) }
func (n *Network) SLBRank(i int) int  { return n.topo.MustRankOf(topology.SLB, i) }
func (n *Network) GSRank(i int) int   { return n.topo.MustRankOf(topology.GS, i) }
func (n *Network) MDSRank(i int) int  { return n.topo.MustRankOf(topology.MDS, i) }
func (n *Network) CCSRank(i int) int  { return n.topo.MustRankOf(topology.CCS, i) }
func (n *Network) BSSRank(i int) int  { return n.topo.MustRankOf(topology.BSS, i) }

func (n *Network) NextTag() int64 { return n.allocator.NextTag() }
func (n *Network) NextSLB() int   { return n.allocator.NextSLB() }
func (n *Network) NextGS() int    { return n.allocator.NextGS() }
func (n *Network) NextMDS() int   { return n.allocator.NextMDS() }
func (n *Network) NextCCS() int   { return n.allocator.NextCCS() }

func (n *Network) NextBSS(sliceID, replicaCount int) int {
	return n.allocator.NextBSS(sliceID) % replicaCount
}

func (n *Network) ResolveSlices(start, length int64) []expand.SliceExtent {
	resolved := n.slices.Resolve(start, length)
	out := make([]expand.SliceExtent, len(resolved))
	for i, r := range resolved {
		out[i] = expand.SliceExtent{SliceID: r.SliceID, Size: r.Size}
	}
	return out
}

func (n *Network) CCSForSlice(sliceID int) int        { return n.ownership.CCSFor(sliceID) }
func (n *Network) ReplicasForSlice(sliceID int) []int { return n.ownership.ReplicasFor(n.ownership.CCSFor(sliceID)) }
