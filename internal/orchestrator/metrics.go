package orchestrator

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
)

// runStats is the run's own Prometheus registry — separate from the
// global default registry, since a goalgen invocation is a one-shot CLI
// process, not a long-lived service with a /metrics endpoint. Its only
// consumer is WriteStatsSnapshot.
type runStats struct {
	registry *prometheus.Registry

	interactions prometheus.Counter
	mounts       prometheus.Counter
	reads        prometheus.Counter
	writes       prometheus.Counter
	bytesRead    prometheus.Counter
	bytesWritten prometheus.Counter
}

func newRunStats() *runStats {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &runStats{
		registry: reg,
		interactions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ddg_interactions_total", Help: "Total storage interactions expanded into goal events.",
		}),
		mounts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ddg_mounts_total", Help: "Total mount operations injected (one per distinct host).",
		}),
		reads: factory.NewCounter(prometheus.CounterOpts{
			Name: "ddg_reads_total", Help: "Total read operations expanded.",
		}),
		writes: factory.NewCounter(prometheus.CounterOpts{
			Name: "ddg_writes_total", Help: "Total write operations expanded.",
		}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "ddg_bytes_read_total", Help: "Total bytes requested across all reads.",
		}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "ddg_bytes_written_total", Help: "Total bytes requested across all writes.",
		}),
	}
}

// WriteStatsSnapshot renders the run's counters in Prometheus text
// exposition format to path, for the --stats-dest flag.
func (n *Network) WriteStatsSnapshot(path string) error {
	families, err := n.stats.registry.Gather()
	if err != nil {
		return ddgerr.SpillIoError(err, "gathering run stats")
	}

	f, err := os.Create(path)
	if err != nil {
		return ddgerr.SpillIoError(err, "creating stats snapshot %s", path)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return ddgerr.SpillIoError(err, "encoding metric family %s", mf.GetName())
		}
	}
	return nil
}
