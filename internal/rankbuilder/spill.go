package rankbuilder

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pierrec/lz4/v3"
	"github.com/teris-io/shortid"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/nlog"
)

// RunDir is a spill run's working directory, named with a short random id
// so concurrent goalgen invocations never collide (mirrors aistore's use
// of shortid for scratch directory naming).
type RunDir struct {
	Path string
}

// NewRunDir creates base/run-<id>/ and returns its handle.
func NewRunDir(base string) (*RunDir, error) {
	id, err := shortid.Generate()
	if err != nil {
		return nil, ddgerr.SpillIoError(err, "generating run id")
	}
	path := filepath.Join(base, "run-"+id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, ddgerr.SpillIoError(err, "creating run dir %s", path)
	}
	return &RunDir{Path: path}, nil
}

func (d *RunDir) rankFile(rankID int) string {
	return filepath.Join(d.Path, "rank_"+itoaSpill(rankID)+".state")
}

func itoaSpill(i int) string {
	// local to avoid importing strconv twice across the package; kept
	// trivial on purpose.
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

// Purge removes every rank_*.state file left over from a run, walking the
// directory with godirwalk rather than os.ReadDir so large spill directories
// (tens of thousands of ranks) don't pay for a full, sorted-by-default
// directory-entry slice up front.
func (d *RunDir) Purge() error {
	var files []string
	err := godirwalk.Walk(d.Path, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() && filepath.Ext(path) == ".state" {
				files = append(files, path)
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return ddgerr.SpillIoError(err, "walking run dir %s", d.Path)
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			nlog.Warnf("rankbuilder: failed to purge %s: %v", f, err)
		}
	}
	return os.Remove(d.Path)
}

// CleanStaleRuns removes every run-* directory left under base, e.g. from
// a prior invocation that crashed before ToGoal reached its own
// RunDir.Purge call. Used by the `goalgen clean` CLI command; returns how
// many run directories were removed.
func CleanStaleRuns(base string) (int, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return 0, ddgerr.SpillIoError(err, "reading spill base dir %s", base)
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "run-") {
			continue
		}
		path := filepath.Join(base, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, ddgerr.SpillIoError(err, "removing stale run dir %s", path)
		}
		removed++
	}
	return removed, nil
}

// spillBuilder appends lines to an lz4-compressed per-rank file through a
// bufio.Writer; no slice of lines is kept in memory, but a line reaches the
// file only once the bufio and lz4 block buffers fill, or at Serialize.
// Built for traces whose per-rank event count would make memBuilder's
// slice-of-strings too large to hold for every rank at once (spec.md §9).
type spillBuilder struct {
	rankID int
	labels Labeler
	path   string
	file   *os.File
	lz     *lz4.Writer
	bw     *bufio.Writer
	err    error
}

// NewSpillBuilder opens the rank's backing file inside run for reading and
// writing (creating it, or truncating an existing one), wrapping it in an
// lz4 frame writer.
func NewSpillBuilder(run *RunDir, rankID int, labels Labeler) (Builder, error) {
	path := run.rankFile(rankID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, ddgerr.SpillIoError(err, "opening spill file %s", path)
	}
	lz := lz4.NewWriter(f)
	bw := bufio.NewWriter(lz)
	return &spillBuilder{rankID: rankID, labels: labels, path: path, file: f, lz: lz, bw: bw}, nil
}

func (b *spillBuilder) RankID() int { return b.rankID }

// writeLine latches the first write failure into b.err rather than
// swallowing it: a spill failure is unrecoverable for the whole
// invocation (spec.md §7's "abort the run" policy), so every subsequent
// Add* call on this rank becomes a no-op once err is set, and the
// orchestrator polls Err() after each interaction to abort promptly
// instead of discovering the failure only at Serialize time.
func (b *spillBuilder) writeLine(line string) {
	if b.err != nil {
		return
	}
	if _, err := b.bw.WriteString(line); err != nil {
		b.err = ddgerr.SpillIoError(err, "writing spill line for rank %d", b.rankID)
		nlog.Errorf("rankbuilder: spill write failed for rank %d: %v", b.rankID, b.err)
		return
	}
	if err := b.bw.WriteByte('\n'); err != nil {
		b.err = ddgerr.SpillIoError(err, "writing spill line for rank %d", b.rankID)
		nlog.Errorf("rankbuilder: spill write failed for rank %d: %v", b.rankID, b.err)
	}
}

func (b *spillBuilder) Err() error { return b.err }

func (b *spillBuilder) AddSend(size int64, toRank int, tag *int64) string {
	label := b.labels.NextLabel("s")
	b.writeLine(formatSend(label, size, toRank, tag))
	return label
}

func (b *spillBuilder) AddRecv(size int64, fromRank int, tag *int64) string {
	label := b.labels.NextLabel("r")
	b.writeLine(formatRecv(label, size, fromRank, tag))
	return label
}

func (b *spillBuilder) AddCalc(duration int64) string {
	label := b.labels.NextLabel("c")
	b.writeLine(formatCalc(label, duration))
	return label
}

func (b *spillBuilder) AddComment(text string) {
	b.writeLine(formatComment(text))
}

func (b *spillBuilder) Require(a, b2 string) {
	b.writeLine(formatRequires(a, b2))
}

// Serialize flushes and closes the write side, then streams the file back
// out through a fresh lz4 reader, framed with the rank header/footer.
func (b *spillBuilder) Serialize(w io.Writer) error {
	if b.err != nil {
		return b.err
	}
	if err := b.bw.Flush(); err != nil {
		return ddgerr.SpillIoError(err, "flushing spill buffer for rank %d", b.rankID)
	}
	if err := b.lz.Close(); err != nil {
		return ddgerr.SpillIoError(err, "closing lz4 frame for rank %d", b.rankID)
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return ddgerr.SpillIoError(err, "rewinding spill file for rank %d", b.rankID)
	}

	bw := bufio.NewWriter(w)
	if _, err := io.WriteString(bw, "rank "+itoaSpill(b.rankID)+" {\n"); err != nil {
		return ddgerr.SpillIoError(err, "writing rank %d header", b.rankID)
	}
	lr := lz4.NewReader(b.file)
	if _, err := io.Copy(bw, lr); err != nil {
		return ddgerr.SpillIoError(err, "streaming spill file for rank %d", b.rankID)
	}
	if _, err := io.WriteString(bw, "}\n"); err != nil {
		return ddgerr.SpillIoError(err, "writing rank %d footer", b.rankID)
	}
	return bw.Flush()
}

func (b *spillBuilder) Close() error {
	if err := b.file.Close(); err != nil {
		return ddgerr.SpillIoError(err, "closing spill file %s", b.path)
	}
	return nil
}
