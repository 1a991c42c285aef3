package policy

// Relationship records how an announcement was received relative to the
// AS holding it.
type Relationship uint8

const (
	Origin Relationship = iota
	FromCustomer
	FromPeer
	FromProvider
)

// rank implements the Gao-Rexford local-preference ordering: customer
// routes beat peer routes beat provider routes, with the origin's own
// announcement ranked highest of all.
func (r Relationship) rank() int {
	switch r {
	case Origin:
		return 3
	case FromCustomer:
		return 2
	case FromPeer:
		return 1
	case FromProvider:
		return 0
	}
	return -1
}

// Announcement is a route for one prefix, carried through the network
// unmutated once installed in a RIB.
type Announcement struct {
	Prefix       string
	ASPath       []uint32 // head = most recent hop, tail = origin
	NextHopASN   uint32
	ReceivedFrom Relationship
	ROVInvalid   bool
}

// NewOriginAnnouncement builds the announcement an AS makes for a prefix
// it originates.
func NewOriginAnnouncement(prefix string, asn uint32, rovInvalid bool) Announcement {
	return Announcement{
		Prefix:       prefix,
		ASPath:       []uint32{asn},
		NextHopASN:   asn,
		ReceivedFrom: Origin,
		ROVInvalid:   rovInvalid,
	}
}

// Forward produces the announcement neighbour v receives when u forwards
// ann to it: v is prepended to the AS path and u, the sender, becomes
// the new next-hop record.
func Forward(ann Announcement, u, v uint32, relAtV Relationship) Announcement {
	path := make([]uint32, 0, len(ann.ASPath)+1)
	path = append(path, v)
	path = append(path, ann.ASPath...)

	return Announcement{
		Prefix:       ann.Prefix,
		ASPath:       path,
		NextHopASN:   u,
		ReceivedFrom: relAtV,
		ROVInvalid:   ann.ROVInvalid,
	}
}

// better reports whether a should be preferred over b for the same
// prefix: local preference first, then path length, then next-hop ASN
// as a deterministic tie-break.
func better(a, b Announcement) bool {
	ra, rb := a.ReceivedFrom.rank(), b.ReceivedFrom.rank()
	if ra != rb {
		return ra > rb
	}
	if len(a.ASPath) != len(b.ASPath) {
		return len(a.ASPath) < len(b.ASPath)
	}
	return a.NextHopASN < b.NextHopASN
}
