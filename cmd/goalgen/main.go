// Command goalgen builds LogGOPSSim goal files from either a uMass-style
// storage trace or a synthetic generator (spec.md §6). It threads
// internal/topology, internal/alloc, internal/trace, and
// internal/orchestrator together the way
// original_source/trace_to_goal/__main__.py's three click subcommands
// thread NetworkTopology/DirectDriveNetwork.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/alloc"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/nlog"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/orchestrator"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/rankbuilder"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/topology"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/trace"
)

func main() {
	app := cli.NewApp()
	app.Name = "goalgen"
	app.Usage = "generate LogGOPSSim goal files from storage traces or synthetic workloads"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "debug", Usage: "show debug logs"},
	}
	app.Before = func(c *cli.Context) error {
		nlog.SetDebug(c.GlobalBool("debug"))
		return nil
	}
	app.Commands = []cli.Command{
		traceCommand,
		simpleCommand,
		worstCaseCommand,
		cleanCommand,
	}

	if err := app.Run(os.Args); err != nil {
		nlog.Errorln(err)
		os.Exit(1)
	}
}

// nodeCountFlags returns the six kind-count flags shared by every
// topology-building subcommand, with the defaults cli_pt/cli_cs/cli_wc
// each use for that subcommand.
func nodeCountFlags(slb, gs, mds, ccs, bss int) []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{Name: "slb-count", Value: slb, Usage: "number of Software Load Balancers in network"},
		cli.IntFlag{Name: "gs-count", Value: gs, Usage: "number of Gateway Switches in network"},
		cli.IntFlag{Name: "mds-count", Value: mds, Usage: "number of MetaData Services in network"},
		cli.IntFlag{Name: "ccs-count", Value: ccs, Usage: "number of Change Coordinator Services in network"},
		cli.IntFlag{Name: "bss-count", Value: bss, Usage: "number of Block Storage Services in network"},
		cli.StringFlag{Name: "topology-strategy", Value: string(topology.GroupedByKind), Usage: "rank placement strategy (grouped-by-kind or fat-tree)"},
		cli.StringFlag{Name: "rank-names-dest", Usage: "write the rank->name side-car JSON here"},
	}
}

func topologyFromFlags(c *cli.Context, hostCount int) (topology.Counts, topology.Strategy) {
	counts := topology.Counts{
		Host: hostCount,
		SLB:  c.Int("slb-count"),
		GS:   c.Int("gs-count"),
		MDS:  c.Int("mds-count"),
		CCS:  c.Int("ccs-count"),
		BSS:  c.Int("bss-count"),
	}
	return counts, topology.Strategy(c.String("topology-strategy"))
}

func writeRankNames(topo *topology.Topology, dest string) error {
	if dest == "" {
		return nil
	}
	data, err := topo.WriteNameMap()
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return ddgerr.SpillIoError(err, "writing rank names to %s", dest)
	}
	return nil
}

// writeGoal drains net to a temp file next to outPath and renames it into
// place on success, so a crash or write error never leaves a partial goal
// file behind (spec.md §7's "writer either completes or removes its
// output").
func writeGoal(net *orchestrator.Network, outPath string) (err error) {
	tmp := outPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ddgerr.SpillIoError(err, "creating %s", tmp)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if err = net.ToGoal(f); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return ddgerr.SpillIoError(err, "closing %s", tmp)
	}
	if err = os.Rename(tmp, outPath); err != nil {
		return ddgerr.SpillIoError(err, "renaming %s to %s", tmp, outPath)
	}
	return nil
}

func progressBar(total int64, name string) (*mpb.Progress, *mpb.Bar) {
	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(total,
		mpb.PrependDecorators(decor.Name(name)),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	return p, bar
}

var traceCommand = cli.Command{
	Name:      "trace",
	Usage:     "transform a uMass trace file to a goal file",
	ArgsUsage: "TRACE_PATH OUT_PATH",
	Flags: append([]cli.Flag{
		cli.IntFlag{Name: "slice-size", Value: 1024, Usage: "slice size in kB"},
	}, append(nodeCountFlags(1, 1, 1, 8, 64), []cli.Flag{
		cli.StringFlag{Name: "next-slb-strategy", Value: string(alloc.RoundRobin), Usage: "strategy to decide on next SLB"},
		cli.BoolFlag{Name: "no-op-depens", Usage: "don't chain each host's operations onto its previous one's terminal labels"},
		cli.BoolFlag{Name: "no-dump-state", Usage: "keep every rank builder in memory instead of spilling to disk"},
		cli.StringFlag{Name: "spill-dir", Value: os.TempDir(), Usage: "base directory for spilled rank state unless --no-dump-state is set"},
		cli.IntFlag{Name: "max-no-instructions", Usage: "only read the first N instructions from the trace file (0 = unlimited)"},
		cli.StringFlag{Name: "stats-dest", Usage: "write a Prometheus text snapshot of run counters here"},
		cli.StringFlag{Name: "checkpoint-dest", Usage: "path to an embedded checkpoint db; if it already exists the run resumes from it, otherwise it's created and refreshed every --checkpoint-every records"},
		cli.IntFlag{Name: "checkpoint-every", Value: 500000, Usage: "persist a checkpoint every N trace records (ignored unless --checkpoint-dest is set)"},
	}...)...),
	Action: runTrace,
}

func runTrace(c *cli.Context) error {
	if c.NArg() != 2 {
		return ddgerr.ConfigInvalid("trace requires TRACE_PATH and OUT_PATH arguments")
	}
	tracePath, outPath := c.Args().Get(0), c.Args().Get(1)
	maxInstr := c.Int("max-no-instructions")

	nlog.Infoln("extracting host count and disk size from trace")
	f, err := os.Open(tracePath)
	if err != nil {
		return ddgerr.SpillIoError(err, "opening trace %s", tracePath)
	}
	detected, err := trace.Detect(f, 1024*1024*1024, maxInstr)
	f.Close()
	if err != nil {
		return err
	}

	sliceSize := int64(c.Int("slice-size")) * 1024
	counts, strategy := topologyFromFlags(c, detected.HostCount)

	nlog.Infof("building network topology (%d hosts; %d CCS; %d BSS)", counts.Host, counts.CCS, counts.BSS)
	topo, err := topology.New(counts, strategy)
	if err != nil {
		return err
	}
	if err := writeRankNames(topo, c.String("rank-names-dest")); err != nil {
		return err
	}

	spillDir := ""
	if !c.Bool("no-dump-state") {
		spillDir = c.String("spill-dir")
	}

	net, err := orchestrator.New(orchestrator.Config{
		Counts:    counts,
		Strategy:  strategy,
		DiskSize:  detected.DiskSize,
		SliceSize: sliceSize,
		OpDepens:  !c.Bool("no-op-depens"),
		SpillDir:  spillDir,
		Alloc: alloc.Config{
			CCSStrategy: alloc.RoundRobin, BSSStrategy: alloc.RoundRobin,
			GSStrategy: alloc.RoundRobin, MDSStrategy: alloc.RoundRobin,
			SLBStrategy: alloc.Strategy(c.String("next-slb-strategy")),
			Seed:        int64(detected.Fingerprint),
		},
	})
	if err != nil {
		return err
	}

	checkpointDest := c.String("checkpoint-dest")
	checkpointEvery := c.Int("checkpoint-every")
	resumeFrom := 0
	if checkpointDest != "" {
		if _, statErr := os.Stat(checkpointDest); statErr == nil {
			resumeFrom, err = net.RestoreCheckpoint(checkpointDest)
			if err != nil {
				return err
			}
			nlog.Infof("resuming trace %s from checkpoint %s at record %d", tracePath, checkpointDest, resumeFrom)
		}
	}

	nlog.Infoln("adding interactions")
	f, err = os.Open(tracePath)
	if err != nil {
		return ddgerr.SpillIoError(err, "reopening trace %s", tracePath)
	}
	defer f.Close()

	_, bar := progressBar(int64(detected.LineCount), "trace")
	processed := 0
	err = trace.Scan(f, maxInstr, func(rec trace.Record) error {
		defer bar.Increment()
		idx := processed
		processed++
		if idx < resumeFrom {
			return nil
		}
		if err := net.AddInteraction(rec.Opcode, rec.ASU, rec.LBA, rec.Size); err != nil {
			return err
		}
		if checkpointDest != "" && checkpointEvery > 0 && processed%checkpointEvery == 0 {
			if err := net.Checkpoint(checkpointDest, processed); err != nil {
				return err
			}
			nlog.Debugf("checkpointed at record %d to %s", processed, checkpointDest)
		}
		return nil
	})
	if err != nil {
		return err
	}

	nlog.Infof("writing goal file to %s", outPath)
	if err := writeGoal(net, outPath); err != nil {
		return err
	}
	if dest := c.String("stats-dest"); dest != "" {
		if err := net.WriteStatsSnapshot(dest); err != nil {
			return err
		}
	}
	if checkpointDest != "" {
		if err := os.Remove(checkpointDest); err != nil && !os.IsNotExist(err) {
			return ddgerr.SpillIoError(err, "removing completed checkpoint %s", checkpointDest)
		}
	}
	return nil
}

var simpleCommand = cli.Command{
	Name:      "simple",
	Usage:     "create a goal file of a simple network with random reads and writes",
	ArgsUsage: "OUT_FILE",
	Flags: append([]cli.Flag{
		cli.IntFlag{Name: "writes", Value: 16, Usage: "number of random writes per host"},
		cli.IntFlag{Name: "reads", Value: 16, Usage: "number of random reads per host"},
		cli.BoolFlag{Name: "no-mount", Usage: "don't simulate a mount operation for each host"},
		cli.IntFlag{Name: "disk-size", Value: 4096, Usage: "disk size in kB"},
		cli.IntFlag{Name: "slice-size", Value: 1, Usage: "slice size in kB"},
		cli.IntFlag{Name: "host-count", Value: 16, Usage: "number of hosts in network"},
		cli.Int64Flag{Name: "seed", Usage: "seed for the random generator (0 = non-deterministic-looking but still fixed per run)"},
	}, nodeCountFlags(1, 1, 1, 128, 1280)...),
	Action: runSimple,
}

func runSimple(c *cli.Context) error {
	if c.NArg() != 1 {
		return ddgerr.ConfigInvalid("simple requires an OUT_FILE argument")
	}
	outFile := c.Args().Get(0)

	diskSize := int64(c.Int("disk-size")) * 1024
	sliceSize := int64(c.Int("slice-size")) * 1024
	counts, strategy := topologyFromFlags(c, c.Int("host-count"))

	topo, err := topology.New(counts, strategy)
	if err != nil {
		return err
	}
	if err := writeRankNames(topo, c.String("rank-names-dest")); err != nil {
		return err
	}

	net, err := orchestrator.New(orchestrator.Config{
		Counts: counts, Strategy: strategy,
		DiskSize: diskSize, SliceSize: sliceSize,
		OpDepens: true,
		Alloc: alloc.Config{
			CCSStrategy: alloc.RoundRobin, BSSStrategy: alloc.RoundRobin,
			GSStrategy: alloc.RoundRobin, MDSStrategy: alloc.RoundRobin, SLBStrategy: alloc.RoundRobin,
			Seed: c.Int64("seed"),
		},
	})
	if err != nil {
		return err
	}

	reads, writes, mount := c.Int("reads"), c.Int("writes"), !c.Bool("no-mount")
	total := int64(reads+writes) * int64(counts.Host)
	_, bar := progressBar(total, "simple")
	defer bar.Abort(false)

	err = trace.Simple(progressInteractor{net, bar}, trace.SimpleConfig{
		HostCount: counts.Host, DiskSize: diskSize,
		Reads: reads, Writes: writes, Mount: mount, Seed: c.Int64("seed"),
	})
	if err != nil {
		return err
	}

	nlog.Infof("writing goal file to %s", outFile)
	return writeGoal(net, outFile)
}

var worstCaseCommand = cli.Command{
	Name:      "worst-case",
	Usage:     "create a goal file with a deterministic congestion pattern",
	ArgsUsage: "OUT_FILE",
	Flags: append([]cli.Flag{
		cli.IntFlag{Name: "writes", Value: 8, Usage: "number of random writes per host per round"},
		cli.IntFlag{Name: "reads", Value: 8, Usage: "number of random reads per host per round"},
		cli.IntFlag{Name: "repeats", Value: 2, Usage: "number of repeats of the read/write cycle"},
		cli.BoolFlag{Name: "no-mount", Usage: "don't simulate a mount operation for each host"},
		cli.IntFlag{Name: "disk-size", Value: 4096, Usage: "disk size in kB"},
		cli.IntFlag{Name: "slice-size", Value: 64, Usage: "slice size in kB"},
		cli.IntFlag{Name: "host-count", Value: 4, Usage: "number of hosts in network"},
		cli.BoolFlag{Name: "no-dump-state", Usage: "keep every rank builder in memory instead of spilling to disk"},
		cli.StringFlag{Name: "spill-dir", Value: os.TempDir(), Usage: "base directory for spilled rank state unless --no-dump-state is set"},
		cli.Int64Flag{Name: "seed", Usage: "seed for the round-extent generator"},
	}, nodeCountFlags(1, 1, 1, 4, 4)...),
	Action: runWorstCase,
}

func runWorstCase(c *cli.Context) error {
	if c.NArg() != 1 {
		return ddgerr.ConfigInvalid("worst-case requires an OUT_FILE argument")
	}
	outFile := c.Args().Get(0)

	diskSize := int64(c.Int("disk-size")) * 1024
	sliceSize := int64(c.Int("slice-size")) * 1024
	counts, strategy := topologyFromFlags(c, c.Int("host-count"))

	topo, err := topology.New(counts, strategy)
	if err != nil {
		return err
	}
	if err := writeRankNames(topo, c.String("rank-names-dest")); err != nil {
		return err
	}

	spillDir := ""
	if !c.Bool("no-dump-state") {
		spillDir = c.String("spill-dir")
	}

	net, err := orchestrator.New(orchestrator.Config{
		Counts: counts, Strategy: strategy,
		DiskSize: diskSize, SliceSize: sliceSize,
		OpDepens: true,
		SpillDir: spillDir,
		Alloc: alloc.Config{
			CCSStrategy: alloc.RoundRobin, BSSStrategy: alloc.RoundRobin,
			GSStrategy: alloc.RoundRobin, MDSStrategy: alloc.RoundRobin, SLBStrategy: alloc.RoundRobin,
			Seed: c.Int64("seed"),
		},
	})
	if err != nil {
		return err
	}

	reads, writes, repeats, mount := c.Int("reads"), c.Int("writes"), c.Int("repeats"), !c.Bool("no-mount")
	total := int64(repeats*(reads+writes)) * int64(counts.Host)
	if mount {
		total += int64(counts.Host)
	}
	_, bar := progressBar(total, "worst-case")
	defer bar.Abort(false)

	err = trace.WorstCase(progressInteractor{net, bar}, trace.WorstCaseConfig{
		HostCount: counts.Host, DiskSize: diskSize,
		Reads: reads, Writes: writes, Repeats: repeats, Mount: mount, Seed: c.Int64("seed"),
	})
	if err != nil {
		return err
	}

	nlog.Infof("writing goal file to %s", outFile)
	return writeGoal(net, outFile)
}

var cleanCommand = cli.Command{
	Name:      "clean",
	Usage:     "remove leftover run-* spill directories under a --spill-dir base directory",
	ArgsUsage: "SPILL_DIR",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return ddgerr.ConfigInvalid("clean requires a SPILL_DIR argument")
		}
		n, err := rankbuilder.CleanStaleRuns(c.Args().Get(0))
		if err != nil {
			return err
		}
		fmt.Printf("removed %d stale run director%s\n", n, plural(n))
		return nil
	},
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// progressInteractor adapts a *orchestrator.Network plus an mpb.Bar to
// trace.Interactor, incrementing the bar once per interaction the way
// cli_cs/cli_wc's tqdm progress bars do.
type progressInteractor struct {
	net *orchestrator.Network
	bar *mpb.Bar
}

func (p progressInteractor) AddInteraction(opCode string, asu int, address, size int64) error {
	defer p.bar.Increment()
	return p.net.AddInteraction(opCode, asu, address, size)
}

func (p progressInteractor) MountHost(asu int) error {
	defer p.bar.Increment()
	return p.net.MountHost(asu)
}
