package federation

import "sort"

// ElectLeader computes the advisory leader for a set of active peers: the
// peer with the highest epoch wins, ties break to the lexicographically
// smallest peer ID. An empty set yields "".
//
// The result is reported to the Forge for audit only. It never decides
// leadership by itself; the Forge's leader poll is the authoritative source.
func ElectLeader(peers []Peer) string {
	if len(peers) == 0 {
		return ""
	}
	ranked := make([]Peer, len(peers))
	copy(ranked, peers)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Record.Epoch != ranked[j].Record.Epoch {
			return ranked[i].Record.Epoch > ranked[j].Record.Epoch
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked[0].ID
}
