// Package policy implements the per-AS route-selection object: an inbox
// of pending announcements, a local RIB, and a pluggable variant that
// decides what gets filtered before selection runs.
package policy

import "sync"

// Policy is the shared capability interface both variants satisfy. A
// closed variant set (BGP, ROV) is sufficient here; adding a new kind is
// a local edit rather than an open inheritance hierarchy.
type Policy interface {
	ASN() uint32
	Enqueue(ann Announcement)
	HasPending() bool
	ProcessPending()
	LocalRIB() map[string]Announcement
}

// base holds the state common to every variant: the inbox and the RIB.
//
// mu guards pending: when the engine parallelises forwarding within a
// rank layer (see internal/sim), enqueues targeting the same AS can
// arrive from multiple worker goroutines concurrently. ProcessPending
// takes the same lock, which combined with the engine's per-phase
// barrier ensures every enqueue for a layer is visible before that
// layer's pending announcements are processed.
type base struct {
	asn      uint32
	mu       sync.Mutex
	pending  map[string][]Announcement
	localRIB map[string]Announcement
}

func newBase(asn uint32) base {
	return base{
		asn:      asn,
		pending:  make(map[string][]Announcement),
		localRIB: make(map[string]Announcement),
	}
}

func (b *base) ASN() uint32 { return b.asn }

func (b *base) Enqueue(ann Announcement) {
	b.mu.Lock()
	b.pending[ann.Prefix] = append(b.pending[ann.Prefix], ann)
	b.mu.Unlock()
}

func (b *base) HasPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, candidates := range b.pending {
		if len(candidates) > 0 {
			return true
		}
	}
	return false
}

func (b *base) LocalRIB() map[string]Announcement {
	return b.localRIB
}

// install runs the selection rule over candidates and installs the
// winner into the RIB if it beats (or there is no) incumbent.
func (b *base) install(prefix string, candidates []Announcement) {
	if len(candidates) == 0 {
		return
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}

	if incumbent, ok := b.localRIB[prefix]; !ok || better(best, incumbent) {
		b.localRIB[prefix] = best
	}
}

// BGPPolicy is the plain-BGP variant: no filtering beyond selection.
type BGPPolicy struct{ base }

// NewBGP creates a policy that installs whatever wins selection,
// including routes marked rov_invalid.
func NewBGP(asn uint32) *BGPPolicy {
	return &BGPPolicy{base: newBase(asn)}
}

func (p *BGPPolicy) ProcessPending() {
	p.mu.Lock()
	snapshot := p.pending
	p.pending = make(map[string][]Announcement)
	p.mu.Unlock()

	for prefix, candidates := range snapshot {
		p.install(prefix, candidates)
	}
}

// ROVPolicy drops rov_invalid candidates on ingress, before selection
// runs, without re-validating whatever is already installed.
type ROVPolicy struct{ base }

// NewROV creates a policy that enforces Route Origin Validation.
func NewROV(asn uint32) *ROVPolicy {
	return &ROVPolicy{base: newBase(asn)}
}

func (p *ROVPolicy) ProcessPending() {
	p.mu.Lock()
	snapshot := p.pending
	p.pending = make(map[string][]Announcement)
	p.mu.Unlock()

	for prefix, candidates := range snapshot {
		valid := candidates[:0:0]
		for _, c := range candidates {
			if !c.ROVInvalid {
				valid = append(valid, c)
			}
		}
		if len(valid) == 0 {
			continue
		}
		p.install(prefix, valid)
	}
}
