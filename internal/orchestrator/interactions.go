package orchestrator

import (
	"bufio"
	"io"
	"strconv"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/expand"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/nlog"
)

// firstBuilderErr returns the first write failure latched by any rank
// builder, or nil if none has failed. Polled right after every mount/
// read/write expansion so a spill failure aborts the run at the point
// it happens instead of surfacing only when ToGoal reaches Serialize at
// the very end of the trace (spec.md §7: "all errors abort the run").
func (n *Network) firstBuilderErr() error {
	for rank := 0; rank < n.topo.TotalRanks(); rank++ {
		if err := n.builders[rank].Err(); err != nil {
			return err
		}
	}
	return nil
}

// MountHost injects a mount for a host that hasn't been seen yet,
// without requiring a read or write alongside it — used by the
// `worst-case` generator's up-front mounts and by the `simple` generator
// when run with `--reads 0 --writes 0` and mounting left on. A no-op if
// the host is already known.
func (n *Network) MountHost(asu int) error {
	if n.knownHosts[asu] {
		return nil
	}
	n.knownHosts[asu] = true
	n.hostDeps[asu] = expand.Mount(n, asu)
	n.stats.mounts.Inc()
	return n.firstBuilderErr()
}

// AddInteraction is the single entry point a trace or generator drives:
// one CSV record or synthetic op in, the matching goal events appended
// to every rank it touches. The host is mounted automatically the first
// time it's seen, independent of OpDepens — a read or write issued
// before any mount has run makes no sense regardless of whether causal
// chaining between ops is requested.
func (n *Network) AddInteraction(opCode string, asu int, address, size int64) error {
	if !n.knownHosts[asu] {
		n.knownHosts[asu] = true
		n.hostDeps[asu] = expand.Mount(n, asu)
		n.stats.mounts.Inc()
		if err := n.firstBuilderErr(); err != nil {
			return err
		}
	}

	var deps []string
	if n.cfg.OpDepens {
		deps = n.hostDeps[asu]
	}

	switch opCode {
	case "r":
		n.hostDeps[asu] = expand.Read(n, asu, address, size, deps)
		n.stats.reads.Inc()
		n.stats.bytesRead.Add(float64(size))
	case "w":
		n.hostDeps[asu] = expand.Write(n, asu, address, size, deps)
		n.stats.writes.Inc()
		n.stats.bytesWritten.Add(float64(size))
	default:
		return ddgerr.UnknownOpcode(opCode)
	}
	n.stats.interactions.Inc()
	return n.firstBuilderErr()
}

// ToGoal drains every rank builder to w, framed with the simulator's
// `num_ranks N` header and a blank line between ranks, matching
// DirectDriveNetwork.to_goal's output shape.
func (n *Network) ToGoal(w io.Writer) error {
	bw := bufio.NewWriter(w)
	total := n.topo.TotalRanks()
	if _, err := bw.WriteString("num_ranks " + strconv.Itoa(total) + "\n\n"); err != nil {
		return ddgerr.SpillIoError(err, "writing goal header")
	}

	for rank := 0; rank < total; rank++ {
		b := n.builders[rank]
		if err := b.Serialize(bw); err != nil {
			return err
		}
		if err := b.Close(); err != nil {
			return err
		}
		if rank != total-1 {
			if _, err := bw.WriteString("\n"); err != nil {
				return ddgerr.SpillIoError(err, "writing rank separator")
			}
		}
		nlog.Debugf("serialized rank %d/%d", rank+1, total)
	}
	if err := bw.Flush(); err != nil {
		return ddgerr.SpillIoError(err, "flushing goal output")
	}
	if n.run != nil {
		return n.run.Purge()
	}
	return nil
}
