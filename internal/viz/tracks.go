package viz

import "fmt"

// Kind selects how many Perfetto threads each rank gets (spec.md §4.7).
type Kind string

const (
	Simple   Kind = "simple"
	Advanced Kind = "advanced"
	Expert   Kind = "expert"
)

// ParseKind validates a --simple/--advanced/--expert flag value.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Simple, Advanced, Expert:
		return Kind(s), nil
	}
	return "", fmt.Errorf("viz: unknown kind %q (want simple, advanced, or expert)", s)
}

// channelKind distinguishes a rank's own CPU track from a channel/NUC
// track used to render a transmission (KindUtils.get_from_thread_list's
// ChannelKind parameter).
type channelKind int

const (
	chanCPU channelKind = iota
	chanNUC
)

// track is one Perfetto thread: a sequence of slice/instant events
// accumulated before any flow id is attached, then emitted in order.
type track struct {
	uuid uint64
	tid  int32
	name string
	events []*trackEvent
}

// trackEvent mirrors one entry of trace_builder.py's TThread.event_params
// tuple, kept mutable (flowIDs/attached) so transmission stitching can
// patch it in place after every local event has already been recorded.
type trackEvent struct {
	op         Op
	name       string
	start, end int64 // slice bounds; both zero and instant=true for an instant event
	instant    bool
	at         int64
	debug      [][2]string
	flowIDs    []uint64
	attached   bool
}

func rankLabel(rankNames map[int]string, rank int) string {
	if name, ok := rankNames[rank]; ok && name != "" {
		return fmt.Sprintf("Rank %d: %s", rank, name)
	}
	return fmt.Sprintf("Rank %d", rank)
}

// layout is the full set of tracks for one build, indexed the way
// KindUtils.get_from_thread_list looks them up.
type layout struct {
	kind Kind

	// simple mode
	single []*track // single[rank]

	// advanced/expert modes
	cpu []*track // cpu[rank]
	nuc []*track // advanced mode only: nuc[rank]

	// expert mode only: channels[i][j] for i<j
	channels map[int]map[int]*track
}

// newLayout builds every track for numRanks up front, in the same order
// create_threads_list does, so ordinal thread ids line up with the
// original's id_generator sequence even though Go tracks carry real
// uuids instead of a shared mutable counter object.
func newLayout(kind Kind, numRanks int, rankNames map[int]string, nextID func() uint64) *layout {
	l := &layout{kind: kind}
	switch kind {
	case Simple:
		l.single = make([]*track, numRanks)
		for r := 0; r < numRanks; r++ {
			l.single[r] = &track{uuid: nextID(), tid: int32(r + 1), name: rankLabel(rankNames, r)}
		}
	case Advanced:
		l.cpu = make([]*track, numRanks)
		l.nuc = make([]*track, numRanks)
		for r := 0; r < numRanks; r++ {
			label := rankLabel(rankNames, r)
			l.cpu[r] = &track{uuid: nextID(), tid: int32(2*r + 1), name: label + " (CPU)"}
			l.nuc[r] = &track{uuid: nextID(), tid: int32(2*r + 2), name: label + " (NUC)"}
		}
	case Expert:
		l.cpu = make([]*track, numRanks)
		l.channels = make(map[int]map[int]*track, numRanks)
		tid := int32(1)
		for r := 0; r < numRanks; r++ {
			label := rankLabel(rankNames, r)
			l.cpu[r] = &track{uuid: nextID(), tid: tid, name: label + " (CPU)"}
			tid++
			peers := make(map[int]*track, numRanks-r-1)
			for j := r + 1; j < numRanks; j++ {
				peers[j] = &track{
					uuid: nextID(), tid: tid,
					name: label + " <-> " + rankLabel(rankNames, j) + " (NUC)",
				}
				tid++
			}
			l.channels[r] = peers
		}
	}
	return l
}

// cpuTrack returns rank's own CPU (or sole, in simple mode) track, or nil
// if rank is outside the layout.
func (l *layout) cpuTrack(rank int) *track {
	tracks := l.cpu
	if l.kind == Simple {
		tracks = l.single
	}
	if rank < 0 || rank >= len(tracks) {
		return nil
	}
	return tracks[rank]
}

// channelTrack returns the track a transmission between rank i and j is
// rendered on: the shared NUC thread in advanced mode, or the
// unordered-pair channel thread in expert mode (never called in simple
// mode, matching trace_builder.py's `if self._kind != Kind.SIMPLE` guard).
func (l *layout) channelTrack(i, j int) *track {
	switch l.kind {
	case Advanced:
		return l.nuc[i]
	case Expert:
		if i < j {
			return l.channels[i][j]
		}
		return l.channels[j][i]
	}
	return nil
}

// allTracks returns every track in the order Perfetto track-descriptor
// packets should be emitted: CPU/single tracks first, channel tracks
// after, matching KindUtils.get_thread_list.
func (l *layout) allTracks() []*track {
	switch l.kind {
	case Simple:
		return append([]*track(nil), l.single...)
	case Advanced:
		out := make([]*track, 0, len(l.cpu)+len(l.nuc))
		out = append(out, l.cpu...)
		out = append(out, l.nuc...)
		return out
	case Expert:
		out := make([]*track, 0, len(l.cpu))
		out = append(out, l.cpu...)
		for r := 0; r < len(l.cpu); r++ {
			for j := r + 1; j < len(l.cpu); j++ {
				out = append(out, l.channels[r][j])
			}
		}
		return out
	}
	return nil
}
