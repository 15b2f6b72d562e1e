// Package rankbuilder implements the append-only per-rank event log
// (spec.md §4.3): a single rank's program, built one event at a time and
// drained exactly once at emission time. Two backends share one
// interface: in-memory (Builder kept as a slice of lines) and
// spill-to-disk (each line written through a buffered lz4 writer to a
// per-rank file, no slice of lines retained; lines are not flushed to the
// file one by one), selected at construction time — not by subclassing, per
// spec.md §9's re-architecture hint.
package rankbuilder

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
)

// Labeler hands out fresh, globally unique labels for a given event-kind
// prefix ("s", "r", "c"). Implemented by internal/alloc.Allocator.
type Labeler interface {
	NextLabel(prefix string) string
}

// Builder is the append-only event log for one rank.
type Builder interface {
	RankID() int
	AddSend(sizeBytes int64, toRank int, tag *int64) string
	AddRecv(sizeBytes int64, fromRank int, tag *int64) string
	AddCalc(duration int64) string
	AddComment(text string)
	Require(a, b string)
	// Serialize drains the rank's program to w, framed as
	// `rank <id> {\n ... }\n`. Safe to call exactly once.
	Serialize(w io.Writer) error
	// Close releases any resources (spill file descriptors). Safe to
	// call on in-memory builders as a no-op.
	Close() error
	// Err returns the first write failure this builder has latched, or
	// nil if every Add* call so far has succeeded. A spill backend can
	// fail mid-run on any AddSend/AddRecv/AddCalc/AddComment/Require
	// call; callers must poll Err after driving a builder rather than
	// waiting for Serialize to surface it, per spec.md §7's "abort the
	// run" policy (in-memory builders never fail an Add*, so they always
	// return nil here).
	Err() error
}

func formatSend(label string, size int64, toRank int, tag *int64) string {
	s := fmt.Sprintf("%s: send %db to %d", label, size, toRank)
	if tag != nil {
		s += " tag " + strconv.FormatInt(*tag, 10)
	}
	return s
}

func formatRecv(label string, size int64, fromRank int, tag *int64) string {
	s := fmt.Sprintf("%s: recv %db from %d", label, size, fromRank)
	if tag != nil {
		s += " tag " + strconv.FormatInt(*tag, 10)
	}
	return s
}

func formatCalc(label string, duration int64) string {
	return fmt.Sprintf("%s: calc %d", label, duration)
}

func formatComment(text string) string {
	escaped := strings.ReplaceAll(text, "\n", "\n// ")
	return "// " + escaped
}

func formatRequires(a, b string) string {
	return a + " requires " + b
}

// memBuilder accumulates lines in an ordered in-memory slice.
type memBuilder struct {
	rankID int
	labels Labeler
	lines  []string
}

// NewMemBuilder constructs an in-memory rank builder.
func NewMemBuilder(rankID int, labels Labeler) Builder {
	b := &memBuilder{rankID: rankID, labels: labels}
	return b
}

func (b *memBuilder) RankID() int { return b.rankID }

func (b *memBuilder) AddSend(size int64, toRank int, tag *int64) string {
	label := b.labels.NextLabel("s")
	b.lines = append(b.lines, formatSend(label, size, toRank, tag))
	return label
}

func (b *memBuilder) AddRecv(size int64, fromRank int, tag *int64) string {
	label := b.labels.NextLabel("r")
	b.lines = append(b.lines, formatRecv(label, size, fromRank, tag))
	return label
}

func (b *memBuilder) AddCalc(duration int64) string {
	label := b.labels.NextLabel("c")
	b.lines = append(b.lines, formatCalc(label, duration))
	return label
}

func (b *memBuilder) AddComment(text string) {
	b.lines = append(b.lines, formatComment(text))
}

func (b *memBuilder) Require(a, b2 string) {
	b.lines = append(b.lines, formatRequires(a, b2))
}

func (b *memBuilder) Serialize(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "rank %d {\n", b.rankID); err != nil {
		return ddgerr.SpillIoError(err, "writing rank %d header", b.rankID)
	}
	for _, line := range b.lines {
		if _, err := bw.WriteString(line); err != nil {
			return ddgerr.SpillIoError(err, "writing rank %d body", b.rankID)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return ddgerr.SpillIoError(err, "writing rank %d body", b.rankID)
		}
	}
	if _, err := bw.WriteString("}\n"); err != nil {
		return ddgerr.SpillIoError(err, "writing rank %d footer", b.rankID)
	}
	return bw.Flush()
}

func (b *memBuilder) Close() error { return nil }

func (b *memBuilder) Err() error { return nil }
