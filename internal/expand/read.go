package expand

// Read expands a read of [start, start+length) on hostID into, per slice
// touched: a CCS sequence-number lookup and a BSS data fetch, each a
// three-step Host<->service round trip. depends on gates the first CCS
// request of every slice on the caller's prior terminal labels (the
// per-host causal chain). It returns one terminal label per slice (the
// host's receipt of that slice's data).
func Read(net Network, hostID int, start, length int64, dependsOn []string) []string {
	hostRank := net.HostRank(hostID)
	host := net.Builder(hostRank)

	extents := net.ResolveSlices(start, length)
	result := make([]string, 0, len(extents))

	for _, ext := range extents {
		ccsIndex := net.CCSForSlice(ext.SliceID)
		ccsRank := net.CCSRank(ccsIndex)
		ccs := net.Builder(ccsRank)

		// Part A: request the slice's current sequence number.
		sqnTag := net.NextTag()
		lHostReqSqn := host.AddSend(LookupReqSize, ccsRank, &sqnTag)
		lCCSReqSqn := ccs.AddRecv(LookupReqSize, hostRank, &sqnTag)
		ccs.AddCalc(CalcIOTime(LookupRespSize, Read))
		lCCSRespSqn := ccs.AddSend(LookupRespSize, hostRank, &sqnTag)
		lHostRespSqn := host.AddRecv(LookupRespSize, ccsRank, &sqnTag)

		host.Require(lHostRespSqn, lHostReqSqn)
		ccs.Require(lCCSRespSqn, lCCSReqSqn)

		// Part B: fetch the slice's data from one of its BSS replicas.
		replicas := net.ReplicasForSlice(ext.SliceID)
		bssIndex := replicas[net.NextBSS(ext.SliceID, len(replicas))]
		bssRank := net.BSSRank(bssIndex)
		bss := net.Builder(bssRank)

		dataTag := net.NextTag()
		lHostReqData := host.AddSend(LookupReqSize, bssRank, &dataTag)
		lBSSReqData := bss.AddRecv(LookupReqSize, hostRank, &dataTag)
		bss.AddCalc(CalcIOTime(ext.Size, Read))
		lBSSRespData := bss.AddSend(ext.Size, hostRank, &dataTag)
		lHostRespData := host.AddRecv(ext.Size, bssRank, &dataTag)

		host.Require(lHostReqData, lHostRespSqn)
		bss.Require(lBSSRespData, lBSSReqData)

		for _, d := range dependsOn {
			host.Require(lHostReqSqn, d)
		}

		result = append(result, lHostRespData)
	}

	return result
}
