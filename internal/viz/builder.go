package viz

import (
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/perfetto"
)

// trustedSeqID is the single sequence id every packet in one converted
// trace shares (TracePacket.trusted_packet_sequence_id). The original
// picks one random uint16 per process invocation (TRUSTED_PACKET_SEQ_ID
// = randint(...)); a fixed constant serves the same purpose here since
// Perfetto only requires the id to be consistent within one trace, not
// globally unique across unrelated traces.
const trustedSeqID = 1

// LoadRankNames parses the optional rank-name side-car JSON
// (spec.md §6): {"<rank_id>": "<human name>", ...}.
func LoadRankNames(data []byte) (map[int]string, error) {
	var raw map[string]string
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &raw); err != nil {
		return nil, ddgerr.TraceMalformed(err, "parsing rank name map")
	}
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		rank, err := strconv.Atoi(k)
		if err != nil {
			return nil, ddgerr.TraceMalformed(err, "rank name map key %q is not an integer", k)
		}
		out[rank] = v
	}
	return out, nil
}

// Build converts a parsed simulator log into a serialized Perfetto trace,
// implementing spec.md §4.7 end to end: thread layout, local-event
// injection, then transmission-to-flow stitching.
func Build(log *Log, kind Kind, rankNames map[int]string, processName string) ([]byte, error) {
	var idSeq uint64
	nextID := func() uint64 {
		idSeq++
		return idSeq
	}

	processUUID := nextID()
	l := newLayout(kind, log.NumRanks, rankNames, nextID)

	for _, ev := range log.Events {
		t := l.cpuTrack(ev.Rank)
		if t == nil {
			return nil, ddgerr.OutOfRange("visualizer log references rank %d, num_ranks is %d", ev.Rank, log.NumRanks)
		}
		t.events = append(t.events, &trackEvent{
			op:    ev.Op,
			name:  ev.Op.displayName(),
			start: ev.Start,
			end:   ev.End,
			debug: [][2]string{{"rank", itoa(ev.Rank)}, {"cpu", itoa(ev.CPU)}},
		})
	}

	for _, t := range log.Transmissions {
		if err := stitchTransmission(l, t, nextID); err != nil {
			return nil, err
		}
	}

	return emit(l, processUUID, processName), nil
}

// stitchTransmission implements TraceBuilder._inject_transmission: emit
// the transmission itself on the channel/NUC track (skipped entirely in
// simple mode), then attach the same fresh flow id to exactly one
// not-yet-attached send slice on the source rank and one on the
// destination rank.
func stitchTransmission(l *layout, t Transmission, nextID func() uint64) error {
	if t.Src == t.Dst {
		return ddgerr.TraceMalformed(nil, "transmission from rank %d to itself", t.Src)
	}
	srcTrack := l.cpuTrack(t.Src)
	dstTrack := l.cpuTrack(t.Dst)
	if srcTrack == nil || dstTrack == nil {
		return ddgerr.OutOfRange("transmission references rank outside [0, %d)", l.numRanks())
	}

	flowID := nextID()

	if l.kind != Simple {
		ch := l.channelTrack(t.Src, t.Dst)
		ch.events = append(ch.events, &trackEvent{
			op: OpTransmit, name: OpTransmit.displayName(),
			start: t.Start, end: t.End,
			flowIDs: []uint64{flowID},
			debug: [][2]string{
				{"size", itoa64(t.Size)},
				{"estart", itoa64(t.Start)},
				{"eend", itoa64(t.End)},
			},
		})
	}

	attachSend(srcTrack, t.Start, flowID)
	attachRecv(dstTrack, t.End, flowID)
	return nil
}

// attachSend picks, among this rank's not-yet-attached osend slices that
// started at or before the transmission's start, the one with the
// largest start time (max-by-start, spec.md §4.7 step 2).
func attachSend(t *track, transmitStart int64, flowID uint64) {
	var best *trackEvent
	for _, e := range t.events {
		if e.op != OpSend || e.attached || e.start > transmitStart {
			continue
		}
		if best == nil || e.start > best.start {
			best = e
		}
	}
	if best != nil {
		best.flowIDs = append(best.flowIDs, flowID)
		best.attached = true
	}
}

// attachRecv picks, among this rank's not-yet-attached orecv slices that
// end at or after the transmission's end, the one with the smallest end
// time (min-by-end, spec.md §4.7 step 3).
func attachRecv(t *track, transmitEnd int64, flowID uint64) {
	var best *trackEvent
	for _, e := range t.events {
		if e.op != OpRecv || e.attached || e.end < transmitEnd {
			continue
		}
		if best == nil || e.end < best.end {
			best = e
		}
	}
	if best != nil {
		best.flowIDs = append(best.flowIDs, flowID)
		best.attached = true
	}
}

func (l *layout) numRanks() int {
	switch l.kind {
	case Simple:
		return len(l.single)
	default:
		return len(l.cpu)
	}
}

func emit(l *layout, processUUID uint64, processName string) []byte {
	var packets []*perfetto.Message
	packets = append(packets, perfetto.ProcessDescriptorPacket(trustedSeqID, processUUID, 0, processName))

	for _, t := range l.allTracks() {
		packets = append(packets, perfetto.ThreadDescriptorPacket(trustedSeqID, t.uuid, processUUID, 0, t.tid, t.name))
		for _, e := range t.events {
			debug := make([]perfetto.DebugAnnotation, len(e.debug))
			for i, d := range e.debug {
				debug[i] = perfetto.DebugAnnotation{Name: d[0], Value: d[1]}
			}
			if e.instant {
				packets = append(packets, perfetto.InstantPacket(trustedSeqID, t.uuid, e.at, e.name, debug))
				continue
			}
			packets = append(packets, perfetto.SliceBeginPacket(trustedSeqID, t.uuid, e.start, e.name, e.flowIDs, debug))
			packets = append(packets, perfetto.SliceEndPacket(trustedSeqID, t.uuid, e.end))
		}
	}

	return perfetto.Trace(packets)
}

func itoa(i int) string   { return itoa64(int64(i)) }
func itoa64(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
