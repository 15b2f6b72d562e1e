// Command vizconv transforms a LogGOPSSim simulator log into a
// Perfetto-compatible trace with send/transmit/receive flows stitched
// across ranks (spec.md §4.7, §6's `visualize` subcommand). Grounded on
// original_source/visualize_loggopssim/visualize/__main__.py.
package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/nlog"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/viz"
)

func main() {
	app := cli.NewApp()
	app.Name = "vizconv"
	app.Usage = "convert a LogGOPSSim simulator log to a Perfetto trace"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "debug", Usage: "show debug logs"},
	}
	app.Before = func(c *cli.Context) error {
		nlog.SetDebug(c.GlobalBool("debug"))
		return nil
	}
	app.Commands = []cli.Command{visualizeCommand}

	if err := app.Run(os.Args); err != nil {
		nlog.Errorln(err)
		os.Exit(1)
	}
}

var visualizeCommand = cli.Command{
	Name:      "visualize",
	Usage:     "transform a viz file generated by LogGOPSSim to a Perfetto trace file",
	ArgsUsage: "IN_FILE OUT_FILE",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "rank-name-map", Usage: "JSON file mapping rank ids to a descriptive name"},
		cli.BoolFlag{Name: "simple", Usage: "one thread per rank (default)"},
		cli.BoolFlag{Name: "advanced", Usage: "two threads per rank: CPU and NUC"},
		cli.BoolFlag{Name: "expert", Usage: "one CPU thread per rank plus one channel thread per rank pair"},
	},
	Action: runVisualize,
}

func runVisualize(c *cli.Context) error {
	if c.NArg() != 2 {
		return ddgerr.ConfigInvalid("visualize requires IN_FILE and OUT_FILE arguments")
	}
	inFile, outFile := c.Args().Get(0), c.Args().Get(1)

	kind := viz.Simple
	switch {
	case c.Bool("expert"):
		kind = viz.Expert
	case c.Bool("advanced"):
		kind = viz.Advanced
	}

	var rankNames map[int]string
	if path := c.String("rank-name-map"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return ddgerr.SpillIoError(err, "reading rank name map %s", path)
		}
		rankNames, err = viz.LoadRankNames(data)
		if err != nil {
			return err
		}
	}

	in, err := os.Open(inFile)
	if err != nil {
		return ddgerr.SpillIoError(err, "opening %s", inFile)
	}
	defer in.Close()

	nlog.Infof("parsing visualizer log %s", inFile)
	log, err := viz.Parse(in)
	if err != nil {
		return err
	}

	nlog.Infof("building %s trace (%d ranks, %d transmissions)", kind, log.NumRanks, len(log.Transmissions))
	out, err := viz.Build(log, kind, rankNames, "Network_Visualization")
	if err != nil {
		return err
	}

	tmp := outFile + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return ddgerr.SpillIoError(err, "writing %s", tmp)
	}
	if err := os.Rename(tmp, outFile); err != nil {
		os.Remove(tmp)
		return ddgerr.SpillIoError(err, "renaming %s to %s", tmp, outFile)
	}
	nlog.Infof("wrote Perfetto trace to %s", outFile)
	return nil
}
