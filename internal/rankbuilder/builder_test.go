package rankbuilder

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqLabels hands out deterministic "<prefix><n>" labels, the simplest
// possible Labeler, for testing the line grammar in isolation from
// internal/alloc's allocation policy.
type seqLabels struct{ n int }

func (s *seqLabels) NextLabel(prefix string) string {
	s.n++
	return prefix + itoaSpill(s.n)
}

func TestMemBuilderLineGrammar(t *testing.T) {
	labels := &seqLabels{}
	b := NewMemBuilder(3, labels)

	tag := int64(42)
	sLabel := b.AddSend(4096, 7, &tag)
	rLabel := b.AddRecv(1024, 2, nil)
	cLabel := b.AddCalc(512)
	b.AddComment("hello")
	b.Require(rLabel, sLabel)
	_ = cLabel

	var buf bytes.Buffer
	require.NoError(t, b.Serialize(&buf))
	out := buf.String()

	assert.Contains(t, out, "rank 3 {\n")
	assert.Contains(t, out, "s1: send 4096b to 7 tag 42")
	assert.Contains(t, out, "r2: recv 1024b from 2\n")
	assert.Contains(t, out, "c3: calc 512")
	assert.Contains(t, out, "// hello")
	assert.Contains(t, out, "r2 requires s1")
	assert.Contains(t, out, "}\n")
}

func TestSpillBuilderMatchesMemBuilder(t *testing.T) {
	dir := t.TempDir()
	run, err := NewRunDir(dir)
	require.NoError(t, err)

	memLabels := &seqLabels{}
	mem := NewMemBuilder(0, memLabels)
	spillLabels := &seqLabels{}
	spill, err := NewSpillBuilder(run, 0, spillLabels)
	require.NoError(t, err)

	for _, b := range []Builder{mem, spill} {
		b.AddSend(100, 1, nil)
		b.AddRecv(200, 1, nil)
		b.AddCalc(50)
	}

	var memBuf, spillBuf bytes.Buffer
	require.NoError(t, mem.Serialize(&memBuf))
	require.NoError(t, spill.Serialize(&spillBuf))
	require.NoError(t, spill.Close())

	assert.Equal(t, memBuf.String(), spillBuf.String())
}

func TestRunDirPurgeRemovesSpillFiles(t *testing.T) {
	dir := t.TempDir()
	run, err := NewRunDir(dir)
	require.NoError(t, err)

	b, err := NewSpillBuilder(run, 5, &seqLabels{})
	require.NoError(t, err)
	b.AddComment("scratch")
	require.NoError(t, b.Close())

	_, statErr := os.Stat(run.rankFile(5))
	require.NoError(t, statErr)

	require.NoError(t, run.Purge())
	_, statErr = os.Stat(run.Path)
	assert.True(t, os.IsNotExist(statErr))
}
