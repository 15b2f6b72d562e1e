package perfetto

// Field numbers below are the public Perfetto trace protobuf schema
// (trace.proto / track_event.proto / track_descriptor.proto /
// debug_annotation.proto). They are not generated from a .proto file —
// see proto.go's package comment for why — so they're kept here, next to
// the wire encoder, the way perfetto_wrapper.py keeps its
// perfetto_trace_pb2 import isolated from trace_builder.py's domain
// logic.
const (
	fieldTracePacket = 1 // Trace.packet

	fieldPacketTimestamp     = 8  // TracePacket.timestamp
	fieldPacketTrustedSeqID  = 10 // TracePacket.trusted_packet_sequence_id
	fieldPacketTrackEvent    = 11 // TracePacket.track_event
	fieldPacketTrackDescr    = 60 // TracePacket.track_descriptor

	fieldTrackUUID       = 1 // TrackDescriptor.uuid
	fieldTrackName       = 2 // TrackDescriptor.name
	fieldTrackProcess    = 3 // TrackDescriptor.process
	fieldTrackThread     = 4 // TrackDescriptor.thread
	fieldTrackParentUUID = 5 // TrackDescriptor.parent_uuid

	fieldThreadPid  = 1 // ThreadDescriptor.pid
	fieldThreadTid  = 4 // ThreadDescriptor.tid
	fieldThreadName = 5 // ThreadDescriptor.thread_name

	fieldProcessPid  = 1 // ProcessDescriptor.pid
	fieldProcessName = 6 // ProcessDescriptor.process_name

	fieldEventType    = 9  // TrackEvent.type
	fieldEventTrackID = 11 // TrackEvent.track_uuid
	fieldEventName    = 23 // TrackEvent.name
	fieldEventFlowIDs = 36 // TrackEvent.flow_ids (repeated, unpacked)
	fieldEventDebug   = 4  // TrackEvent.debug_annotations (repeated)

	fieldDebugName   = 22 // DebugAnnotation.name
	fieldDebugString = 6  // DebugAnnotation.string_value
)

// TrackEvent.Type enum values.
const (
	EventTypeSliceBegin uint64 = 1
	EventTypeSliceEnd   uint64 = 2
	EventTypeInstant    uint64 = 3
)

// DebugAnnotation is a single string-valued key/value pair attached to a
// slice-begin or instant event, matching the (name, value) tuples
// trace_builder.py threads through as `debug=[(k, v), ...]`.
type DebugAnnotation struct {
	Name  string
	Value string
}

func debugAnnotation(a DebugAnnotation) *Message {
	m := NewMessage()
	m.String(fieldDebugName, a.Name)
	m.String(fieldDebugString, a.Value)
	return m
}

// ProcessDescriptorPacket builds the single TracePacket that declares the
// one process every thread track hangs off of (TProcess.inject's
// "process init packet").
func ProcessDescriptorPacket(seqID uint32, uuid uint64, pid int32, name string) *Message {
	proc := NewMessage()
	proc.Int(fieldProcessPid, int64(pid))
	proc.String(fieldProcessName, name)

	track := NewMessage()
	track.Varint(fieldTrackUUID, uuid)
	track.Embed(fieldTrackProcess, proc)

	pkt := NewMessage()
	pkt.Embed(fieldPacketTrackDescr, track)
	pkt.Varint(fieldPacketTrustedSeqID, uint64(seqID))
	return pkt
}

// ThreadDescriptorPacket declares one thread track parented under
// parentUUID (TThread.inject's "thread initializer" packet).
func ThreadDescriptorPacket(seqID uint32, uuid, parentUUID uint64, pid int32, tid int32, name string) *Message {
	thread := NewMessage()
	thread.Int(fieldThreadPid, int64(pid))
	thread.Int(fieldThreadTid, int64(tid))
	thread.String(fieldThreadName, name)

	track := NewMessage()
	track.Varint(fieldTrackUUID, uuid)
	track.Varint(fieldTrackParentUUID, parentUUID)
	track.Embed(fieldTrackThread, thread)

	pkt := NewMessage()
	pkt.Embed(fieldPacketTrackDescr, track)
	pkt.Varint(fieldPacketTrustedSeqID, uint64(seqID))
	return pkt
}

// SliceBeginPacket/SliceEndPacket/InstantPacket are the three TrackEvent
// shapes TThread.inject_event emits. flowIDs is nil for events no
// transmission ever attached to.
func SliceBeginPacket(seqID uint32, trackUUID uint64, timestamp int64, name string, flowIDs []uint64, debug []DebugAnnotation) *Message {
	ev := NewMessage()
	ev.Varint(fieldEventType, EventTypeSliceBegin)
	ev.Varint(fieldEventTrackID, trackUUID)
	ev.String(fieldEventName, name)
	ev.RepeatedVarint(fieldEventFlowIDs, flowIDs)
	for _, d := range debug {
		ev.Embed(fieldEventDebug, debugAnnotation(d))
	}

	pkt := NewMessage()
	pkt.Int(fieldPacketTimestamp, timestamp)
	pkt.Embed(fieldPacketTrackEvent, ev)
	pkt.Varint(fieldPacketTrustedSeqID, uint64(seqID))
	return pkt
}

func SliceEndPacket(seqID uint32, trackUUID uint64, timestamp int64) *Message {
	ev := NewMessage()
	ev.Varint(fieldEventType, EventTypeSliceEnd)
	ev.Varint(fieldEventTrackID, trackUUID)

	pkt := NewMessage()
	pkt.Int(fieldPacketTimestamp, timestamp)
	pkt.Embed(fieldPacketTrackEvent, ev)
	pkt.Varint(fieldPacketTrustedSeqID, uint64(seqID))
	return pkt
}

func InstantPacket(seqID uint32, trackUUID uint64, timestamp int64, name string, debug []DebugAnnotation) *Message {
	ev := NewMessage()
	ev.Varint(fieldEventType, EventTypeInstant)
	ev.Varint(fieldEventTrackID, trackUUID)
	ev.String(fieldEventName, name)
	for _, d := range debug {
		ev.Embed(fieldEventDebug, debugAnnotation(d))
	}

	pkt := NewMessage()
	pkt.Int(fieldPacketTimestamp, timestamp)
	pkt.Embed(fieldPacketTrackEvent, ev)
	pkt.Varint(fieldPacketTrustedSeqID, uint64(seqID))
	return pkt
}

// Trace wraps a flat sequence of already-built TracePacket messages as
// the top-level Trace message (TTrace.serialize).
func Trace(packets []*Message) []byte {
	trace := NewMessage()
	for _, p := range packets {
		trace.Embed(fieldTracePacket, p)
	}
	return trace.Marshal()
}
