package expand

// Write expands a write of [start, start+length) on hostID into, per
// slice touched: the host storing data on the slice's CCS, then the CCS
// replicating it to every BSS in the slice's replica set (N=N quorum —
// spec.md §9 keeps this rather than a configurable quorum size) before
// acknowledging the host. depends on gates the first CCS send of every
// slice on the caller's prior terminal labels. It returns one terminal
// label per slice (the host's receipt of the CCS's ack).
func Write(net Network, hostID int, start, length int64, dependsOn []string) []string {
	hostRank := net.HostRank(hostID)
	host := net.Builder(hostRank)

	extents := net.ResolveSlices(start, length)
	result := make([]string, 0, len(extents))

	for _, ext := range extents {
		ccsIndex := net.CCSForSlice(ext.SliceID)
		ccsRank := net.CCSRank(ccsIndex)
		ccs := net.Builder(ccsRank)

		dataTag := net.NextTag()
		lHostReq := host.AddSend(ext.Size, ccsRank, &dataTag)
		lCCSReq := ccs.AddRecv(ext.Size, hostRank, &dataTag)

		lCCSStore := ccs.AddCalc(CalcIOTime(ext.Size, Write))
		ccs.Require(lCCSStore, lCCSReq)

		replicas := net.ReplicasForSlice(ext.SliceID)
		sqnPromises := make([]string, 0, len(replicas))
		for _, bssIndex := range replicas {
			bssRank := net.BSSRank(bssIndex)
			bss := net.Builder(bssRank)

			replTag := net.NextTag()
			lCCSRepl := ccs.AddSend(ext.Size, bssRank, &replTag)
			lBSSRepl := bss.AddRecv(ext.Size, ccsRank, &replTag)

			lBSSStore := bss.AddCalc(CalcIOTime(ext.Size, Write))

			sqnTag := net.NextTag()
			lBSSSqn := bss.AddSend(LookupReqSize, ccsRank, &sqnTag)
			lCCSSqn := ccs.AddRecv(LookupReqSize, bssRank, &sqnTag)

			bss.Require(lBSSSqn, lBSSStore)
			bss.Require(lBSSStore, lBSSRepl)
			ccs.Require(lCCSRepl, lCCSStore)
			ccs.Require(lCCSSqn, lCCSRepl)

			sqnPromises = append(sqnPromises, lCCSSqn)
		}

		hostSqnTag := net.NextTag()
		lCCSSqnResp := ccs.AddSend(LookupRespSize, hostRank, &hostSqnTag)
		lHostSqnResp := host.AddRecv(LookupRespSize, ccsRank, &hostSqnTag)

		for _, lCCSSqn := range sqnPromises {
			ccs.Require(lCCSSqnResp, lCCSSqn)
		}
		host.Require(lHostSqnResp, lHostReq)

		for _, d := range dependsOn {
			host.Require(lHostReq, d)
		}

		result = append(result, lHostSqnResp)
	}

	return result
}
