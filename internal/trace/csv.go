// Package trace turns a storage-I/O trace — either a uMass-style CSV file
// or a synthetic generator — into the (opcode, host, address, size)
// records an orchestrator.Network consumes one at a time (spec.md §7).
package trace

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/OneOfOne/xxhash"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/ddgerr"
)

// Record is one CSV line: an ASU (host) id, a logical block address, a
// byte size, and an opcode ('r' or 'w'). Extra trailing fields a uMass
// trace carries (timestamp, flags, ...) are read and discarded.
type Record struct {
	ASU    int
	LBA    int64
	Size   int64
	Opcode string
}

// Scan reads trace records from r in order, calling fn for each one. It
// stops after maxInstructions records when maxInstructions > 0 (the
// --max-no-instructions cap), or after r is exhausted. A record with
// fewer than 4 fields, or a non-integer ASU/LBA/size, fails the whole
// scan with TraceMalformed, and an opcode other than 'r'/'w' fails it
// with UnknownOpcode before fn is called; fn itself returning an error
// also stops the scan immediately.
func Scan(r io.Reader, maxInstructions int, fn func(Record) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	count := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ddgerr.TraceMalformed(err, "reading CSV record %d", count)
		}

		rec, err := parseRecord(fields, count)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}

		count++
		if maxInstructions > 0 && count >= maxInstructions {
			return nil
		}
	}
}

func parseRecord(fields []string, lineNo int) (Record, error) {
	if len(fields) < 4 {
		return Record{}, ddgerr.TraceMalformed(nil, "record %d has %d fields, need at least 4 (asu,lba,size,opcode)", lineNo, len(fields))
	}

	asu, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, ddgerr.TraceMalformed(err, "record %d: asu %q is not an integer", lineNo, fields[0])
	}
	lba, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Record{}, ddgerr.TraceMalformed(err, "record %d: lba %q is not an integer", lineNo, fields[1])
	}
	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Record{}, ddgerr.TraceMalformed(err, "record %d: size %q is not an integer", lineNo, fields[2])
	}
	opcode := fields[3]
	if opcode != "r" && opcode != "w" {
		return Record{}, ddgerr.UnknownOpcode(opcode)
	}

	return Record{ASU: asu, LBA: lba, Size: size, Opcode: opcode}, nil
}

// DetectResult is the shape a trace auto-detection pass derives before
// any topology or orchestrator is built.
type DetectResult struct {
	HostCount int
	DiskSize  int64
	LineCount int
	// Fingerprint is an xxHash digest of every (asu,lba,size,opcode)
	// record seen, independent of trailing/unused columns. It seeds the
	// allocator's Random next-node strategy (internal/alloc.Config.Seed)
	// so re-running goalgen on the same trace with the same flags
	// reproduces the same placement decisions, even though nothing else
	// about the run is content-addressed.
	Fingerprint uint64
}

// Detect scans r once, computing the host count (max asu+1), the disk
// size (max lba+size, floored at minDiskSize), the record count, and a
// content fingerprint. It honors maxInstructions the same way Scan does,
// matching cli_pt's autodetection pass in
// original_source/trace_to_goal/__main__.py.
func Detect(r io.Reader, minDiskSize int64, maxInstructions int) (DetectResult, error) {
	res := DetectResult{HostCount: 1, DiskSize: minDiskSize}
	h := xxhash.New64()

	err := Scan(r, maxInstructions, func(rec Record) error {
		if rec.ASU+1 > res.HostCount {
			res.HostCount = rec.ASU + 1
		}
		if end := rec.LBA + rec.Size; end > res.DiskSize {
			res.DiskSize = end
		}
		res.LineCount++

		io.WriteString(h, strconv.Itoa(rec.ASU))
		io.WriteString(h, ",")
		io.WriteString(h, strconv.FormatInt(rec.LBA, 10))
		io.WriteString(h, ",")
		io.WriteString(h, strconv.FormatInt(rec.Size, 10))
		io.WriteString(h, ",")
		io.WriteString(h, rec.Opcode)
		io.WriteString(h, "\n")
		return nil
	})
	if err != nil {
		return DetectResult{}, err
	}

	res.Fingerprint = h.Sum64()
	return res, nil
}
