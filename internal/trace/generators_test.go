package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInteractor struct {
	mounted []int
	ops     []struct {
		opCode  string
		asu     int
		address int64
		size    int64
	}
}

func (f *fakeInteractor) MountHost(asu int) error {
	f.mounted = append(f.mounted, asu)
	return nil
}
func (f *fakeInteractor) AddInteraction(opCode string, asu int, address, size int64) error {
	f.ops = append(f.ops, struct {
		opCode  string
		asu     int
		address int64
		size    int64
	}{opCode, asu, address, size})
	return nil
}

func TestSimpleGeneratesReadsThenWritesPerHost(t *testing.T) {
	fi := &fakeInteractor{}
	cfg := SimpleConfig{HostCount: 3, DiskSize: 4096, Reads: 2, Writes: 1, Seed: 1}
	require.NoError(t, Simple(fi, cfg))

	assert.Len(t, fi.ops, 3*2+3*1)
	for _, op := range fi.ops {
		assert.GreaterOrEqual(t, op.address, int64(0))
		assert.GreaterOrEqual(t, op.size, int64(0))
	}
}

func TestSimpleMountOnlyWhenNoOpsRequested(t *testing.T) {
	fi := &fakeInteractor{}
	cfg := SimpleConfig{HostCount: 4, DiskSize: 4096, Mount: true}
	require.NoError(t, Simple(fi, cfg))

	assert.Len(t, fi.mounted, 4)
	assert.Empty(t, fi.ops)
}

func TestWorstCaseSharesAddressRangeAcrossHosts(t *testing.T) {
	fi := &fakeInteractor{}
	cfg := WorstCaseConfig{HostCount: 4, DiskSize: 4096, Reads: 1, Writes: 0, Repeats: 1, Seed: 5}
	require.NoError(t, WorstCase(fi, cfg))

	require.Len(t, fi.ops, 4)
	first := fi.ops[0]
	for _, op := range fi.ops {
		assert.Equal(t, first.address, op.address)
		assert.Equal(t, first.size, op.size)
	}
}

func TestWorstCaseMountsAllHostsUpFront(t *testing.T) {
	fi := &fakeInteractor{}
	cfg := WorstCaseConfig{HostCount: 3, DiskSize: 4096, Mount: true, Repeats: 1}
	require.NoError(t, WorstCase(fi, cfg))
	assert.Len(t, fi.mounted, 3)
}
