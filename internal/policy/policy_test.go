package policy

import (
	"reflect"
	"testing"
)

func TestBGPPolicyInstallsSingleCandidate(t *testing.T) {
	p := NewBGP(1)
	ann := NewOriginAnnouncement("10.0.0.0/24", 1, false)
	p.Enqueue(ann)
	p.ProcessPending()

	got, ok := p.LocalRIB()["10.0.0.0/24"]
	if !ok {
		t.Fatal("expected prefix to be installed")
	}
	if got.ReceivedFrom != Origin {
		t.Errorf("ReceivedFrom = %v, want Origin", got.ReceivedFrom)
	}
}

func TestSelectionPrefersCustomerOverPeer(t *testing.T) {
	p := NewBGP(2)
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{2, 9}, NextHopASN: 9, ReceivedFrom: FromPeer})
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{2, 1, 9}, NextHopASN: 1, ReceivedFrom: FromCustomer})
	p.ProcessPending()

	got := p.LocalRIB()["p"]
	if got.ReceivedFrom != FromCustomer {
		t.Errorf("expected customer route to win despite longer path, got %v", got.ReceivedFrom)
	}
}

func TestSelectionPrefersShorterPath(t *testing.T) {
	p := NewBGP(1)
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{1, 2, 3}, NextHopASN: 2, ReceivedFrom: FromCustomer})
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{1, 4}, NextHopASN: 4, ReceivedFrom: FromCustomer})
	p.ProcessPending()

	got := p.LocalRIB()["p"]
	if len(got.ASPath) != 2 {
		t.Errorf("expected shorter path to win, got %v", got.ASPath)
	}
}

func TestSelectionTieBreaksOnNextHop(t *testing.T) {
	p := NewBGP(1)
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{1, 3}, NextHopASN: 3, ReceivedFrom: FromCustomer})
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{1, 2}, NextHopASN: 2, ReceivedFrom: FromCustomer})
	p.ProcessPending()

	got := p.LocalRIB()["p"]
	if got.NextHopASN != 2 {
		t.Errorf("expected lower next-hop ASN to win tie-break, got %d", got.NextHopASN)
	}
}

func TestIncumbentNotDowngraded(t *testing.T) {
	p := NewBGP(1)
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{1, 2}, NextHopASN: 2, ReceivedFrom: FromCustomer})
	p.ProcessPending()

	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{1, 5}, NextHopASN: 5, ReceivedFrom: FromPeer})
	p.ProcessPending()

	got := p.LocalRIB()["p"]
	if got.ReceivedFrom != FromCustomer {
		t.Errorf("expected incumbent customer route to survive a worse peer route, got %v", got.ReceivedFrom)
	}
}

func TestProcessPendingIdempotent(t *testing.T) {
	p := NewBGP(1)
	p.Enqueue(NewOriginAnnouncement("p", 1, false))
	p.ProcessPending()
	before := p.LocalRIB()["p"]

	p.ProcessPending() // no intervening enqueue
	after := p.LocalRIB()["p"]

	if !reflect.DeepEqual(before, after) {
		t.Errorf("ProcessPending was not idempotent: %+v != %+v", before, after)
	}
}

func TestROVPolicyDropsInvalidCandidates(t *testing.T) {
	p := NewROV(2)
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{2, 1}, NextHopASN: 1, ReceivedFrom: FromPeer, ROVInvalid: true})
	p.ProcessPending()

	if _, ok := p.LocalRIB()["p"]; ok {
		t.Fatal("expected invalid-only candidate set to leave the prefix unset")
	}
}

func TestROVPolicyKeepsValidCandidates(t *testing.T) {
	p := NewROV(2)
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{2, 1}, NextHopASN: 1, ReceivedFrom: FromPeer, ROVInvalid: true})
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{2, 3}, NextHopASN: 3, ReceivedFrom: FromPeer, ROVInvalid: false})
	p.ProcessPending()

	got, ok := p.LocalRIB()["p"]
	if !ok {
		t.Fatal("expected the valid candidate to be installed")
	}
	if got.NextHopASN != 3 {
		t.Errorf("NextHopASN = %d, want 3", got.NextHopASN)
	}
}

func TestROVDoesNotRevalidateIncumbent(t *testing.T) {
	p := NewROV(2)
	// An invalid-marked route already in the RIB is not re-checked when a
	// later batch of candidates is processed: ROV filters only new arrivals.
	p.localRIB["p"] = NewOriginAnnouncement("p", 2, true)
	p.Enqueue(Announcement{Prefix: "p", ASPath: []uint32{2, 1}, NextHopASN: 1, ReceivedFrom: FromPeer})
	p.ProcessPending()

	if got, ok := p.LocalRIB()["p"]; !ok || !got.ROVInvalid {
		t.Fatal("expected origin's own invalid-marked route to remain installed")
	}
}

func TestForwardPrependsHop(t *testing.T) {
	base := NewOriginAnnouncement("p", 3, false)
	fwd := Forward(base, 3, 2, FromCustomer)

	if len(fwd.ASPath) != 2 || fwd.ASPath[0] != 2 || fwd.ASPath[1] != 3 {
		t.Errorf("ASPath = %v, want [2 3]", fwd.ASPath)
	}
	if fwd.NextHopASN != 3 {
		t.Errorf("NextHopASN = %d, want 3", fwd.NextHopASN)
	}
	if fwd.ReceivedFrom != FromCustomer {
		t.Errorf("ReceivedFrom = %v, want FromCustomer", fwd.ReceivedFrom)
	}
}
