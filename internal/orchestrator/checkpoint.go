package orchestrator

import (
	"strconv"
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
)

// progressKey stores how many trace records have already been expanded
// into this run's builders, alongside the per-host state. A resumed run
// needs it to skip those records rather than re-expand them: the
// builders may already be flushed to a spill file, so redriving the
// same interactions would duplicate events.
const progressKey = "progress:records"

// Checkpoint persists the set of known hosts, each host's current
// causal-chain tail, and the count of trace records processed so far to
// an embedded buntdb database, so a run over a very large trace can
// resume after an interruption without re-expanding every interaction
// already drained to the rank builders (spec.md §5's back-pressure
// discussion names this as the kind of seam a bounded-memory run
// needs). Hosts are keyed as strings since buntdb indexes and stores
// string keys/values only. Called periodically from cmd/goalgen's trace
// subcommand via --checkpoint-dest/--checkpoint-every.
func (n *Network) Checkpoint(path string, recordsProcessed int) error {
	db, err := buntdb.Open(path)
	if err != nil {
		return ddgerr.SpillIoError(err, "opening checkpoint db %s", path)
	}
	defer db.Close()

	return db.Update(func(tx *buntdb.Tx) error {
		for asu, deps := range n.hostDeps {
			key := "host:" + strconv.Itoa(asu)
			if _, _, err := tx.Set(key, strings.Join(deps, ","), nil); err != nil {
				return err
			}
		}
		if _, _, err := tx.Set(progressKey, strconv.Itoa(recordsProcessed), nil); err != nil {
			return err
		}
		return nil
	})
}

// RestoreCheckpoint replays a prior Checkpoint's known-hosts/tail-label
// state into a freshly constructed Network, before any interaction has
// been added to it, and returns how many trace records the checkpoint
// had already processed so the caller can skip them.
func (n *Network) RestoreCheckpoint(path string) (int, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return 0, ddgerr.SpillIoError(err, "opening checkpoint db %s", path)
	}
	defer db.Close()

	recordsProcessed := 0
	err = db.View(func(tx *buntdb.Tx) error {
		if v, getErr := tx.Get(progressKey); getErr == nil {
			if n, convErr := strconv.Atoi(v); convErr == nil {
				recordsProcessed = n
			}
		}
		return tx.AscendKeys("host:*", func(key, value string) bool {
			asuStr := strings.TrimPrefix(key, "host:")
			asu, convErr := strconv.Atoi(asuStr)
			if convErr != nil {
				return true
			}
			n.knownHosts[asu] = true
			if value == "" {
				n.hostDeps[asu] = nil
			} else {
				n.hostDeps[asu] = strings.Split(value, ",")
			}
			return true
		})
	})
	if err != nil {
		return 0, err
	}
	return recordsProcessed, nil
}
