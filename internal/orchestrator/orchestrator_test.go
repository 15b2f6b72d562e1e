package orchestrator

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/alloc"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/topology"
)

func testConfig() Config {
	return Config{
		Counts:    topology.Counts{Host: 2, SLB: 1, GS: 1, MDS: 1, CCS: 2, BSS: 4},
		Strategy:  topology.GroupedByKind,
		DiskSize:  4096,
		SliceSize: 512,
		Alloc: alloc.Config{
			CCSStrategy: alloc.RoundRobin, BSSStrategy: alloc.RoundRobin,
			GSStrategy: alloc.First, SLBStrategy: alloc.First, MDSStrategy: alloc.First,
		},
		OpDepens: true,
	}
}

func TestAddInteractionMountsOnFirstContact(t *testing.T) {
	n, err := New(testConfig())
	require.NoError(t, err)

	require.NoError(t, n.AddInteraction("r", 0, 0, 512))
	assert.True(t, n.knownHosts[0])
	assert.False(t, n.knownHosts[1])

	var buf bytes.Buffer
	require.NoError(t, n.Builder(n.HostRank(0)).Serialize(&buf))
	assert.Contains(t, buf.String(), "send 4096b")
}

func TestAddInteractionRejectsUnknownOpcode(t *testing.T) {
	n, err := New(testConfig())
	require.NoError(t, err)

	err = n.AddInteraction("x", 0, 0, 512)
	assert.Error(t, err)
}

func TestToGoalEmitsHeaderAndAllRanks(t *testing.T) {
	n, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, n.AddInteraction("w", 0, 0, 1024))
	require.NoError(t, n.AddInteraction("r", 1, 0, 512))

	var buf bytes.Buffer
	require.NoError(t, n.ToGoal(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "num_ranks 11\n\n"))
	for rank := 0; rank < 11; rank++ {
		assert.Contains(t, out, "rank "+itoaForTest(rank)+" {")
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	n, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, n.AddInteraction("r", 0, 0, 512))

	ckptPath := filepath.Join(t.TempDir(), "ckpt.db")
	require.NoError(t, n.Checkpoint(ckptPath, 1))

	n2, err := New(testConfig())
	require.NoError(t, err)
	resumeFrom, err := n2.RestoreCheckpoint(ckptPath)
	require.NoError(t, err)

	assert.Equal(t, 1, resumeFrom)
	assert.True(t, n2.knownHosts[0])
	assert.Equal(t, n.hostDeps[0], n2.hostDeps[0])
}

func TestWriteStatsSnapshot(t *testing.T) {
	n, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, n.AddInteraction("w", 0, 0, 1024))

	path := filepath.Join(t.TempDir(), "stats.prom")
	require.NoError(t, n.WriteStatsSnapshot(path))
}

func itoaForTest(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}
