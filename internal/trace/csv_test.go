package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanParsesRecordsAndStopsAtCap(t *testing.T) {
	csv := "0,0,4096,r\n1,4096,4096,w,extra,columns\n2,0,512,r\n"
	var got []Record
	err := Scan(strings.NewReader(csv), 2, func(r Record) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Record{ASU: 0, LBA: 0, Size: 4096, Opcode: "r"}, got[0])
	assert.Equal(t, Record{ASU: 1, LBA: 4096, Size: 4096, Opcode: "w"}, got[1])
}

func TestScanRejectsShortRecord(t *testing.T) {
	err := Scan(strings.NewReader("0,0,4096\n"), 0, func(Record) error { return nil })
	assert.Error(t, err)
}

func TestScanRejectsUnknownOpcode(t *testing.T) {
	err := Scan(strings.NewReader("0,0,4096,x\n"), 0, func(Record) error { return nil })
	assert.Error(t, err)
}

func TestScanRejectsNonIntegerField(t *testing.T) {
	err := Scan(strings.NewReader("abc,0,4096,r\n"), 0, func(Record) error { return nil })
	assert.Error(t, err)
}

func TestDetectComputesHostCountAndDiskSize(t *testing.T) {
	csv := "0,0,4096,r\n2,8192,1024,w\n1,100,50,r\n"
	res, err := Detect(strings.NewReader(csv), 1<<20, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.HostCount)
	assert.EqualValues(t, 1<<20, res.DiskSize)
	assert.Equal(t, 3, res.LineCount)
	assert.NotZero(t, res.Fingerprint)
}

func TestDetectFloorsDiskSizeAtMinimum(t *testing.T) {
	res, err := Detect(strings.NewReader("0,0,10,r\n"), 4096, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 4096, res.DiskSize)
}

func TestDetectIsDeterministic(t *testing.T) {
	csv := "0,0,4096,r\n1,8192,1024,w\n"
	r1, err := Detect(strings.NewReader(csv), 0, 0)
	require.NoError(t, err)
	r2, err := Detect(strings.NewReader(csv), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, r1.Fingerprint, r2.Fingerprint)
}
