package viz

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = "num_ranks 2\n" +
	"osend 0 0 10 20\n" +
	"orecv 1 0 30 40\n" +
	"transmission 0 1 15 35 128\n"

func TestParseLog(t *testing.T) {
	log, err := Parse(strings.NewReader(sampleLog))
	require.NoError(t, err)

	assert.Equal(t, 2, log.NumRanks)
	require.Len(t, log.Events, 2)
	assert.Equal(t, LocalEvent{Op: OpSend, Rank: 0, CPU: 0, Start: 10, End: 20}, log.Events[0])
	assert.Equal(t, LocalEvent{Op: OpRecv, Rank: 1, CPU: 0, Start: 30, End: 40}, log.Events[1])

	require.Len(t, log.Transmissions, 1)
	tr := log.Transmissions[0]
	assert.Equal(t, 0, tr.Src)
	assert.Equal(t, 1, tr.Dst)
	assert.Equal(t, int64(15), tr.Start)
	// end is the log's raw end (35) minus one, per parseTransmission.
	assert.Equal(t, int64(34), tr.End)
	assert.Equal(t, int64(128), tr.Size)
}

func TestParseRejectsMissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("osend 0 0 10 20\n"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownOp(t *testing.T) {
	_, err := Parse(strings.NewReader("num_ranks 1\nbogus 0 0 10 20\n"))
	assert.Error(t, err)
}

// TestBuildStitchesFlow covers spec.md §8 scenario 6: a single
// transmission must attach its flow id to exactly one send slice on the
// source rank and one recv slice on the destination rank, and (outside
// simple mode) must also appear on the rank pair's channel track.
func TestBuildStitchesFlow(t *testing.T) {
	log, err := Parse(strings.NewReader(sampleLog))
	require.NoError(t, err)

	out, err := Build(log, Expert, nil, "Network_Visualization")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	// ids: process 1, rank 0 CPU 2, channel 0<->1 3, rank 1 CPU 4, so the
	// flow id is 5. TrackEvent.flow_ids (field 36, varint) encodes as the
	// key bytes 0xA0 0x02 followed by the value 0x05; it must appear on the
	// osend slice, the channel slice and the orecv slice.
	flowField := []byte{0xA0, 0x02, 0x05}
	assert.Equal(t, 3, bytes.Count(out, flowField))
}

func TestAttachSendPicksLatestEligibleStart(t *testing.T) {
	tr := &track{events: []*trackEvent{
		{op: OpSend, start: 5},
		{op: OpSend, start: 12}, // after transmitStart=15? no, 12<=15 eligible
		{op: OpSend, start: 20}, // not eligible, starts after transmission
	}}
	attachSend(tr, 15, 99)

	assert.True(t, tr.events[1].attached)
	assert.Equal(t, []uint64{99}, tr.events[1].flowIDs)
	assert.False(t, tr.events[0].attached)
	assert.False(t, tr.events[2].attached)
}

func TestAttachRecvPicksEarliestEligibleEnd(t *testing.T) {
	tr := &track{events: []*trackEvent{
		{op: OpRecv, end: 10}, // not eligible, ends before transmission
		{op: OpRecv, end: 40},
		{op: OpRecv, end: 50},
	}}
	attachRecv(tr, 35, 7)

	assert.True(t, tr.events[1].attached)
	assert.Equal(t, []uint64{7}, tr.events[1].flowIDs)
	assert.False(t, tr.events[0].attached)
	assert.False(t, tr.events[2].attached)
}

func TestBuildRejectsOutOfRangeRank(t *testing.T) {
	log := &Log{NumRanks: 1, Events: []LocalEvent{{Op: OpSend, Rank: 5, Start: 0, End: 1}}}
	_, err := Build(log, Simple, nil, "p")
	assert.Error(t, err)
}

func TestLoadRankNames(t *testing.T) {
	names, err := LoadRankNames([]byte(`{"0": "Host 0", "3": "CCS 1"}`))
	require.NoError(t, err)
	assert.Equal(t, "Host 0", names[0])
	assert.Equal(t, "CCS 1", names[3])
}
