// Package topology maps logical nodes (kind, index) onto flat rank
// identifiers in [0, totalRanks). It implements spec.md §3/§4.1: an
// immutable configuration of six kind-counts placed onto ranks by one of
// two strategies.
package topology

import (
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
)

// Kind identifies one of the six node kinds in the network.
type Kind int

const (
	Host Kind = iota
	SLB
	GS
	MDS
	CCS
	BSS
	numKinds
)

func (k Kind) String() string {
	switch k {
	case Host:
		return "Host"
	case SLB:
		return "SLB"
	case GS:
		return "GS"
	case MDS:
		return "MDS"
	case CCS:
		return "CCS"
	case BSS:
		return "BSS"
	default:
		return "Unknown"
	}
}

// Strategy selects how kinds are spread across ranks.
type Strategy string

const (
	GroupedByKind Strategy = "grouped-by-kind"
	FatTree       Strategy = "fat-tree"
)

// Counts is the six kind-counts that make up a network topology.
type Counts struct {
	Host, SLB, GS, MDS, CCS, BSS int
}

func (c Counts) get(k Kind) int {
	switch k {
	case Host:
		return c.Host
	case SLB:
		return c.SLB
	case GS:
		return c.GS
	case MDS:
		return c.MDS
	case CCS:
		return c.CCS
	case BSS:
		return c.BSS
	default:
		return 0
	}
}

func (c Counts) total() int {
	return c.Host + c.SLB + c.GS + c.MDS + c.CCS + c.BSS
}

// kindOrder is the order kinds are walked in for both strategies; for
// grouped-by-kind it's also the contiguous rank order (hosts first).
var kindOrder = []Kind{Host, SLB, GS, MDS, CCS, BSS}

// Topology is an immutable (kind,index)->rank mapping built once at
// construction time. The zero value is not valid; use New.
type Topology struct {
	counts   Counts
	strategy Strategy
	mapping  map[Kind][]int // mapping[k][i] = rank of (k, i)
}

// New validates counts (every kind-count must be >= 1, spec.md §7
// ConfigInvalid) and builds the placement for the given strategy.
func New(counts Counts, strategy Strategy) (*Topology, error) {
	for _, k := range kindOrder {
		if counts.get(k) < 1 {
			return nil, ddgerr.ConfigInvalid("topology invalid: %s count must be >= 1 (is %d)", k, counts.get(k))
		}
	}
	switch strategy {
	case GroupedByKind, FatTree:
	default:
		return nil, ddgerr.ConfigInvalid("unknown topology strategy %q", strategy)
	}

	t := &Topology{counts: counts, strategy: strategy, mapping: make(map[Kind][]int, numKinds)}
	switch strategy {
	case GroupedByKind:
		t.buildGroupedByKind()
	case FatTree:
		t.buildFatTree()
	}
	return t, nil
}

func (t *Topology) buildGroupedByKind() {
	offset := 0
	for _, k := range kindOrder {
		n := t.counts.get(k)
		ranks := make([]int, n)
		for i := 0; i < n; i++ {
			ranks[i] = offset + i
		}
		t.mapping[k] = ranks
		offset += n
	}
}

// buildFatTree spreads each kind evenly across the network: the target
// slot for the i-th node of a kind with `count` nodes is
// round((i+1) * N/(count+1)). On collision it nudges left/right
// alternately until a free slot is found. Ported statement-for-statement
// from original_source/trace_to_goal/network.py's _init_fattree_state,
// per spec.md §9's instruction to preserve the observed placement
// behavior exactly.
func (t *Topology) buildFatTree() {
	total := t.counts.total()
	taken := make(map[int]bool, total)

	for _, k := range kindOrder {
		n := t.counts.get(k)
		ranks := make([]int, n)
		fac := float64(total) / float64(n+1)
		for i := 0; i < n; i++ {
			pos := roundHalfToEven(float64(i+1) * fac)
			if taken[pos] {
				posL := mod(pos-1, total)
				posR := mod(pos+1, total)
				for taken[posL] && taken[posR] {
					posL = mod(posL-1, total)
					posR = mod(posR+1, total)
				}
				if !taken[posL] {
					pos = posL
				} else {
					pos = posR
				}
			}
			taken[pos] = true
			ranks[i] = pos
		}
		t.mapping[k] = ranks
	}
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// roundHalfToEven matches Python's builtin round(), which the original
// implementation relies on: exact .5 ties go to the even neighbour. Ties
// do occur for real topology sizes (14 ranks with 3 hosts puts the third
// host's target at 10.5, which rounds to 10).
func roundHalfToEven(f float64) int {
	if f < 0 {
		return -roundHalfToEven(-f)
	}
	i := int(f)
	frac := f - float64(i)
	if frac > 0.5 || (frac == 0.5 && i%2 == 1) {
		i++
	}
	return i
}

// RankOf is a total function on index in [0, Count(kind)); it fails with
// OutOfRange otherwise.
func (t *Topology) RankOf(k Kind, index int) (int, error) {
	ranks, ok := t.mapping[k]
	if !ok || index < 0 || index >= len(ranks) {
		return 0, ddgerr.OutOfRange("%s index %d out of range [0, %d)", k, index, t.counts.get(k))
	}
	return ranks[index], nil
}

// MustRankOf panics on out-of-range lookups; reserved for call sites that
// have already validated the index against Count(k) (e.g. iterating
// 0..Count(k)).
func (t *Topology) MustRankOf(k Kind, index int) int {
	r, err := t.RankOf(k, index)
	if err != nil {
		panic(err)
	}
	return r
}

// Count returns how many nodes of kind k this topology has.
func (t *Topology) Count(k Kind) int { return t.counts.get(k) }

// TotalRanks is the sum over all six kind-counts.
func (t *Topology) TotalRanks() int { return t.counts.total() }

// Strategy returns the placement strategy this topology was built with.
func (t *Topology) Strategy() Strategy { return t.strategy }

// NameMap builds the rank->human-label side-car (spec.md §6).
func (t *Topology) NameMap() map[int]string {
	out := make(map[int]string, t.TotalRanks())
	for _, k := range kindOrder {
		for i, rank := range t.mapping[k] {
			out[rank] = formatLabel(k, i)
		}
	}
	return out
}

func formatLabel(k Kind, i int) string {
	return k.String() + " " + strconv.Itoa(i)
}

// WriteNameMap serializes the rank->name side-car as JSON, matching
// NetworkTopology.to_file in original_source/trace_to_goal/network.py.
// Keys are stringified rank ids, per spec.md §6.
func (t *Topology) WriteNameMap() ([]byte, error) {
	nm := t.NameMap()
	asStrKeys := make(map[string]string, len(nm))
	for rank, name := range nm {
		asStrKeys[strconv.Itoa(rank)] = name
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(asStrKeys)
}

// RankComment names a rank's builder comment, annotated by kind and index.
type RankComment struct {
	Rank    int
	Comment string
}

// RanksByKind returns the comment text used by the orchestrator to
// annotate each rank's builder ("Host #0", "CCS #3", ...), in ascending
// rank order for every kind, mirroring DirectDriveNetwork.__init__'s
// "Inject comments in builders for readability" loop.
func (t *Topology) RanksByKind() []RankComment {
	entries := make([]RankComment, 0, t.TotalRanks())
	for _, k := range kindOrder {
		for i, rank := range t.mapping[k] {
			entries = append(entries, RankComment{Rank: rank, Comment: k.String() + " #" + strconv.Itoa(i)})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
	return entries
}
