// Package alloc hands out the monotone labels/tags and next-node
// placements an interaction expansion consumes (spec.md §4.3/§4.4). A
// single Allocator is shared by every call into internal/expand for one
// run, so every counter it owns is safe for concurrent use even though
// the orchestrator itself drives it sequentially today (spec.md §5 flags
// this as the seam a future parallel orchestrator would shard along).
package alloc

import (
	"math/rand"
	"strconv"
	"sync"

	"go.uber.org/atomic"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
)

// Strategy selects how an Allocator picks the next node of a given kind.
type Strategy string

const (
	RoundRobin Strategy = "round-robin"
	Random     Strategy = "random"
	First      Strategy = "first"
)

func validStrategy(s Strategy) bool {
	switch s {
	case RoundRobin, Random, First:
		return true
	}
	return false
}

// Config is the set of next-node strategies and node counts an Allocator
// needs; Host has no strategy since mounts always target the host that
// issued them.
type Config struct {
	CCSStrategy, BSSStrategy, GSStrategy, SLBStrategy, MDSStrategy Strategy
	CCSCount, BSSCount, GSCount, SLBCount, MDSCount                int
	// Seed seeds the Random strategy's generator. Runs that never use a
	// random strategy may leave this zero.
	Seed int64
}

// Allocator is the run-scoped source of labels, tags, and next-node
// indices. Construct one per run with New.
type Allocator struct {
	cfg Config

	label *atomic.Int64
	tag   *atomic.Int64

	ccsNext, gsNext, slbNext, mdsNext *atomic.Int64
	bssMu                             sync.Mutex
	bssNext                           map[string]int64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New validates cfg's strategies and builds an Allocator. Node counts are
// not re-validated here (internal/topology.New already rejected zero
// counts for the kinds that exist); a zero BSS/CCS/etc count with a
// strategy configured for it would only be reachable through a topology
// that itself failed to build.
func New(cfg Config) (*Allocator, error) {
	for name, s := range map[string]Strategy{
		"ccs": cfg.CCSStrategy, "bss": cfg.BSSStrategy, "gs": cfg.GSStrategy,
		"slb": cfg.SLBStrategy, "mds": cfg.MDSStrategy,
	} {
		if !validStrategy(s) {
			return nil, ddgerr.ConfigInvalid("next-%s strategy %q is not one of round-robin/random/first", name, s)
		}
	}
	return &Allocator{
		cfg:     cfg,
		label:   atomic.NewInt64(0),
		tag:     atomic.NewInt64(0),
		ccsNext: atomic.NewInt64(0),
		gsNext:  atomic.NewInt64(0),
		slbNext: atomic.NewInt64(0),
		mdsNext: atomic.NewInt64(0),
		bssNext: make(map[string]int64),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// NextLabel returns "<prefix><n>" off the run's single shared label
// counter — labels across send/recv/calc events share one sequence, so
// "s3"/"r3"/"c3" never coexist (matches RankBuilder.get_new_label sharing
// one 'label' counter across every prefix).
func (a *Allocator) NextLabel(prefix string) string {
	n := a.label.Add(1) - 1
	return prefix + strconv.FormatInt(n, 10)
}

// NextTag returns the next value off the run's single shared tag counter.
func (a *Allocator) NextTag() int64 {
	return a.tag.Add(1) - 1
}

func roundRobin(counter *atomic.Int64, modulo int) int {
	if modulo <= 0 {
		return 0
	}
	n := counter.Add(1) - 1
	return int(n % int64(modulo))
}

func (a *Allocator) randomIn(modulo int) int {
	if modulo <= 0 {
		return 0
	}
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	// Exclusive upper bound: the original's random.randint(0, modulo) is
	// inclusive and can return modulo itself, one past the valid index
	// range every other strategy respects. Fixed here per spec.md §9.
	return a.rng.Intn(modulo)
}

func pick(strategy Strategy, modulo int, rr func() int, rnd func() int) int {
	switch strategy {
	case RoundRobin:
		return rr()
	case Random:
		return rnd()
	case First:
		return 0
	}
	return 0
}

// NextCCS returns the next CCS index per the configured CCS strategy.
func (a *Allocator) NextCCS() int {
	return pick(a.cfg.CCSStrategy, a.cfg.CCSCount,
		func() int { return roundRobin(a.ccsNext, a.cfg.CCSCount) },
		func() int { return a.randomIn(a.cfg.CCSCount) })
}

// NextGS returns the next GS index per the configured GS strategy.
func (a *Allocator) NextGS() int {
	return pick(a.cfg.GSStrategy, a.cfg.GSCount,
		func() int { return roundRobin(a.gsNext, a.cfg.GSCount) },
		func() int { return a.randomIn(a.cfg.GSCount) })
}

// NextSLB returns the next SLB index per the configured SLB strategy.
func (a *Allocator) NextSLB() int {
	return pick(a.cfg.SLBStrategy, a.cfg.SLBCount,
		func() int { return roundRobin(a.slbNext, a.cfg.SLBCount) },
		func() int { return a.randomIn(a.cfg.SLBCount) })
}

// NextMDS returns the next MDS index per the configured MDS strategy.
func (a *Allocator) NextMDS() int {
	return pick(a.cfg.MDSStrategy, a.cfg.MDSCount,
		func() int { return roundRobin(a.mdsNext, a.cfg.MDSCount) },
		func() int { return a.randomIn(a.cfg.MDSCount) })
}

// NextBSS returns the next BSS sub-counter value for a given slice,
// keyed per slice id so each slice's replica set is chosen from
// independently (matches get_next_bss(slice_id) keying its counter off
// f'bss{slice_id}'). The caller reduces the result modulo the slice's
// actual replica-block length; the counter itself still advances modulo
// the run's total BSS count, matching the original's two-stage reduction.
func (a *Allocator) NextBSS(sliceID int) int {
	key := "bss" + strconv.Itoa(sliceID)

	switch a.cfg.BSSStrategy {
	case First:
		return 0
	case Random:
		return a.randomIn(a.cfg.BSSCount)
	default: // RoundRobin
		a.bssMu.Lock()
		defer a.bssMu.Unlock()
		n := a.bssNext[key]
		if a.cfg.BSSCount > 0 {
			a.bssNext[key] = (n + 1) % int64(a.cfg.BSSCount)
		} else {
			a.bssNext[key] = n + 1
		}
		return int(n)
	}
}
