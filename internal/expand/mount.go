package expand

// Mount expands the slice-map lookup a host performs once before its
// first read or write: Host -> SLB -> GS -> MDS and back, three hops each
// way sharing one request tag and one response tag. It returns the
// host's terminal label so later operations can be chained after it
// (spec.md §4.4's "mount-once-on-first-contact" rule).
func Mount(net Network, hostID int) []string {
	hostRank := net.HostRank(hostID)
	host := net.Builder(hostRank)

	slbRank := net.SLBRank(net.NextSLB())
	slb := net.Builder(slbRank)

	gsRank := net.GSRank(net.NextGS())
	gs := net.Builder(gsRank)

	mdsRank := net.MDSRank(net.NextMDS())
	mds := net.Builder(mdsRank)

	// Step 1: Host -> SLB -> GS -> MDS: request the slice map.
	reqTag := net.NextTag()
	lHostReq := host.AddSend(MountReqSize, slbRank, &reqTag)
	lSLBReqIn := slb.AddRecv(MountReqSize, hostRank, &reqTag)
	lSLBReqOut := slb.AddSend(MountReqSize, gsRank, &reqTag)
	lGSReqIn := gs.AddRecv(MountReqSize, slbRank, &reqTag)
	lGSReqOut := gs.AddSend(MountReqSize, mdsRank, &reqTag)
	lMDSReq := mds.AddRecv(MountReqSize, gsRank, &reqTag)

	// Step 2: MDS looks up the slice map.
	lMDSLoad := mds.AddCalc(CalcIOTime(MountRespSize, Read))

	// Step 3: MDS -> GS -> SLB -> Host: reply with the slice map.
	respTag := net.NextTag()
	lMDSResp := mds.AddSend(MountRespSize, gsRank, &respTag)
	lGSRespIn := gs.AddRecv(MountRespSize, mdsRank, &respTag)
	lGSRespOut := gs.AddSend(MountRespSize, slbRank, &respTag)
	lSLBRespIn := slb.AddRecv(MountRespSize, gsRank, &respTag)
	lSLBRespOut := slb.AddSend(MountRespSize, hostRank, &respTag)
	lHostResp := host.AddRecv(MountRespSize, slbRank, &respTag)

	host.Require(lHostResp, lHostReq)
	gs.Require(lGSReqOut, lGSReqIn)
	gs.Require(lGSRespOut, lGSRespIn)
	slb.Require(lSLBReqOut, lSLBReqIn)
	slb.Require(lSLBRespOut, lSLBRespIn)
	mds.Require(lMDSLoad, lMDSReq)
	mds.Require(lMDSResp, lMDSLoad)

	return []string{lHostResp}
}
