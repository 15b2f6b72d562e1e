package expand_test

import (
	"strconv"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/TrimVis/DirectDriveGoalCreator/internal/expand"
	"github.com/TrimVis/DirectDriveGoalCreator/internal/rankbuilder"
)

// fakeLabeler hands out deterministic labels from one counter shared by
// every rank, the way a real run's shared internal/alloc.Allocator would
// but without pulling in that package as a test dependency.
type fakeLabeler struct {
	mu sync.Mutex
	n  int
}

func (l *fakeLabeler) NextLabel(prefix string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n++
	return prefix + strconv.Itoa(l.n)
}

// fakeNetwork is a small, fixed six-rank-kind layout: 1 host (rank 0), 1
// SLB (1), 1 GS (2), 1 MDS (3), 2 CCS (4,5), 4 BSS (6,7,8,9) split into
// two replica blocks of two. Slice 0 is owned by CCS 0 / replicas
// [6,7]; slice 1 by CCS 1 / replicas [8,9].
type fakeNetwork struct {
	builders map[int]rankbuilder.Builder
	tag      int64
	mu       sync.Mutex
}

func newFakeNetwork() *fakeNetwork {
	labels := &fakeLabeler{}
	n := &fakeNetwork{builders: make(map[int]rankbuilder.Builder)}
	for rank := 0; rank < 10; rank++ {
		n.builders[rank] = rankbuilder.NewMemBuilder(rank, labels)
	}
	return n
}

func (n *fakeNetwork) Builder(rank int) rankbuilder.Builder { return n.builders[rank] }
func (n *fakeNetwork) HostRank(int) int                     { return 0 }
func (n *fakeNetwork) SLBRank(int) int                      { return 1 }
func (n *fakeNetwork) GSRank(int) int                       { return 2 }
func (n *fakeNetwork) MDSRank(int) int                      { return 3 }
func (n *fakeNetwork) CCSRank(i int) int                    { return 4 + i }
func (n *fakeNetwork) BSSRank(i int) int                    { return 6 + i }

func (n *fakeNetwork) NextTag() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tag++
	return n.tag - 1
}
func (n *fakeNetwork) NextSLB() int { return 0 }
func (n *fakeNetwork) NextGS() int  { return 0 }
func (n *fakeNetwork) NextMDS() int { return 0 }
func (n *fakeNetwork) NextCCS() int { return 0 }
func (n *fakeNetwork) NextBSS(sliceID, replicaCount int) int {
	return sliceID % replicaCount
}

func (n *fakeNetwork) ResolveSlices(start, length int64) []expand.SliceExtent {
	// Fixed 512-byte slices, covering [0, 1024).
	var out []expand.SliceExtent
	for sid := 0; sid < 2; sid++ {
		sliceStart := int64(sid) * 512
		sliceEnd := sliceStart + 512
		rangeEnd := start + length
		if sliceEnd <= start || rangeEnd <= sliceStart {
			continue
		}
		lo := max64(sliceStart, start)
		hi := min64(sliceEnd, rangeEnd)
		out = append(out, expand.SliceExtent{SliceID: sid, Size: hi - lo})
	}
	return out
}

func (n *fakeNetwork) CCSForSlice(sliceID int) int { return sliceID }
func (n *fakeNetwork) ReplicasForSlice(sliceID int) []int {
	if sliceID == 0 {
		return []int{0, 1}
	}
	return []int{2, 3}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

var _ = Describe("Mount", func() {
	It("threads one request/response tag pair through SLB/GS/MDS", func() {
		net := newFakeNetwork()
		tails := expand.Mount(net, 0)
		Expect(tails).To(HaveLen(1))
		Expect(tails[0]).NotTo(BeEmpty())

		// The MDS (rank 3) receives the request under tag 0 from the GS
		// (rank 2) and answers under tag 1.
		var buf strBuf
		Expect(net.Builder(3).Serialize(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("recv 4096b from 2 tag 0"))
		Expect(buf.String()).To(ContainSubstring("send 4096b to 2 tag 1"))
	})
})

var _ = Describe("Read", func() {
	It("returns one terminal label per slice touched", func() {
		net := newFakeNetwork()
		tails := expand.Read(net, 0, 0, 1024, nil)
		Expect(tails).To(HaveLen(2))
	})

	It("chains the first CCS request after every dependency", func() {
		net := newFakeNetwork()
		tails := expand.Read(net, 0, 0, 512, []string{"s99"})

		var buf strBuf
		Expect(net.Builder(0).Serialize(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("requires s99"))
		Expect(tails).To(HaveLen(1))
	})
})

var _ = Describe("Write", func() {
	It("replicates to every BSS in the slice's block before acking", func() {
		net := newFakeNetwork()
		tails := expand.Write(net, 0, 0, 1024, nil)
		Expect(tails).To(HaveLen(2))

		var buf strBuf
		Expect(net.Builder(4).Serialize(&buf)).To(Succeed())
		// CCS 0 must send to both of its replicas (ranks 6 and 7).
		Expect(buf.String()).To(ContainSubstring("to 6"))
		Expect(buf.String()).To(ContainSubstring("to 7"))
	})
})

type strBuf struct{ b []byte }

func (s *strBuf) Write(p []byte) (int, error) {
	s.b = append(s.b, p...)
	return len(p), nil
}
func (s *strBuf) String() string { return string(s.b) }
