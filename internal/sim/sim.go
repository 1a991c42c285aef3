// Package sim drives the three-phase valley-free propagation schedule
// over a flattened AS graph, using each AS's per-AS Policy to hold its
// pending inbox and local RIB.
package sim

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"github.com/JosephPizzuti/BGP-Simulator/internal/asgraph"
	"github.com/JosephPizzuti/BGP-Simulator/internal/policy"
	"github.com/JosephPizzuti/BGP-Simulator/internal/simerr"
)

// ProgressSink receives one notification per rank/phase boundary. It is
// satisfied by internal/progress.Broadcaster; nil is a valid no-op sink.
type ProgressSink interface {
	Publish(phase string, rank int, asesProcessed int)
}

// Simulator owns the immutable graph, the flattened layers, and one
// Policy per AS.
type Simulator struct {
	graph    *asgraph.Graph
	layers   asgraph.Layers
	policies []policy.Policy
	workers  int
	rv       *rendezvous.Rendezvous
	progress ProgressSink
}

// New builds a Simulator: it flattens graph into layers and instantiates
// a BGPPolicy or ROVPolicy for every AS depending on rovASNs membership.
func New(graph *asgraph.Graph, rovASNs map[uint32]struct{}, workers int) (*Simulator, error) {
	layers, err := graph.Flatten()
	if err != nil {
		return nil, err
	}

	n := graph.MaxASN() + 1
	policies := make([]policy.Policy, n)
	// ASN 0 is never a real AS and never appears in a layer, but a
	// relationships file can still reference it as an edge endpoint, so
	// it gets a policy too, the way the original simulator's constructor
	// always emplaces a placeholder at index 0 before ranging over the
	// real ASes.
	for asn := uint32(0); asn < n; asn++ {
		if _, enforced := rovASNs[asn]; enforced {
			policies[asn] = policy.NewROV(asn)
		} else {
			policies[asn] = policy.NewBGP(asn)
		}
	}

	s := &Simulator{
		graph:    graph,
		layers:   layers,
		policies: policies,
		workers:  workers,
	}

	if workers > 1 {
		nodes := make([]string, workers)
		for i := range nodes {
			nodes[i] = workerName(i)
		}
		s.rv = rendezvous.New(nodes, hashWithSeed)
	}

	return s, nil
}

// SetProgress attaches a progress sink; nil disables reporting.
func (s *Simulator) SetProgress(sink ProgressSink) {
	s.progress = sink
}

// hashWithSeed adapts xxhash to the rendezvous.Hasher shape: string -> uint64.
func hashWithSeed(s string) uint64 {
	return xxhash.Sum64String(s)
}

func workerName(i int) string {
	return "worker-" + strconv.Itoa(i)
}

// Policy returns the policy owning asn's RIB, for inspection or output.
func (s *Simulator) Policy(asn uint32) policy.Policy {
	return s.policies[asn]
}

// MaxASN returns the graph's highest indexable ASN.
func (s *Simulator) MaxASN() uint32 {
	return s.graph.MaxASN()
}

// SeedPrefix injects an origin announcement at origin's policy and
// installs it immediately, so the route is in the RIB before
// propagation begins.
func (s *Simulator) SeedPrefix(prefix string, origin uint32, rovInvalid bool) error {
	if origin == 0 || origin > s.graph.MaxASN() {
		return &simerr.RangeError{ASN: origin, MaxASN: s.graph.MaxASN()}
	}

	ann := policy.NewOriginAnnouncement(prefix, origin, rovInvalid)
	pol := s.policies[origin]
	pol.Enqueue(ann)
	pol.ProcessPending()
	return nil
}

// PropagateAll runs propagate_up, propagate_across_peers, and
// propagate_down in that order.
func (s *Simulator) PropagateAll() {
	s.propagateUp()
	s.propagateAcrossPeers()
	s.propagateDown()
}

// propagateUp moves customer-learned routes toward providers, rank by
// ascending rank so a provider always sees its customers' best routes
// before it processes its own inbox.
func (s *Simulator) propagateUp() {
	for r := 0; r < len(s.layers); r++ {
		layer := s.layers[r]
		s.forEachInLayer(layer, func(asn uint32) {
			node := s.graph.Node(asn)
			rib := s.policies[asn].LocalRIB()
			for _, ann := range rib {
				for _, p := range node.Providers {
					s.policies[p].Enqueue(policy.Forward(ann, asn, p, policy.FromCustomer))
				}
			}
		})

		if s.progress != nil {
			s.progress.Publish("up", r, len(layer))
		}

		if r+1 < len(s.layers) {
			s.processLayerIfPending(s.layers[r+1])
		}
	}
}

// propagateAcrossPeers exchanges each AS's best routes with its peers,
// exactly once: peer-learned routes are never re-exported to another
// peer or upward.
func (s *Simulator) propagateAcrossPeers() {
	n := s.graph.MaxASN() + 1
	all := allASNs(n)

	s.forEachInLayer(all, func(asn uint32) {
		node := s.graph.Node(asn)
		rib := s.policies[asn].LocalRIB()
		for _, ann := range rib {
			for _, q := range node.Peers {
				s.policies[q].Enqueue(policy.Forward(ann, asn, q, policy.FromPeer))
			}
		}
	})

	if s.progress != nil {
		s.progress.Publish("across_peers", 0, len(all))
	}

	s.processLayerIfPending(all)
}

// propagateDown moves every route toward customers, descending by rank
// so each AS re-exports downward the best route it has from any source.
func (s *Simulator) propagateDown() {
	for r := len(s.layers) - 1; r >= 1; r-- {
		layer := s.layers[r]
		s.forEachInLayer(layer, func(asn uint32) {
			node := s.graph.Node(asn)
			rib := s.policies[asn].LocalRIB()
			for _, ann := range rib {
				for _, c := range node.Customers {
					s.policies[c].Enqueue(policy.Forward(ann, asn, c, policy.FromProvider))
				}
			}
		})

		if s.progress != nil {
			s.progress.Publish("down", r, len(layer))
		}

		s.processLayerIfPending(s.layers[r-1])
	}
}

func (s *Simulator) processLayerIfPending(layer []uint32) {
	s.forEachInLayer(layer, func(asn uint32) {
		if s.policies[asn].HasPending() {
			s.policies[asn].ProcessPending()
		}
	})
}

// forEachInLayer runs fn over every ASN in layer, sequentially unless
// Workers > 1 and the layer holds at least 2*Workers ASNs, in which case
// ASNs are hashed onto a fixed rendezvous worker pool so the same ASN
// always lands on the same worker whenever a layer is split.
func (s *Simulator) forEachInLayer(layer []uint32, fn func(asn uint32)) {
	if s.rv == nil || len(layer) < 2*s.workers {
		for _, asn := range layer {
			fn(asn)
		}
		return
	}

	buckets := make(map[string][]uint32, s.workers)
	for _, asn := range layer {
		key := workerKey(asn)
		w := s.rv.Lookup(key)
		buckets[w] = append(buckets[w], asn)
	}

	var wg sync.WaitGroup
	for _, asns := range buckets {
		asns := asns
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, asn := range asns {
				fn(asn)
			}
		}()
	}
	wg.Wait()
}

func allASNs(n uint32) []uint32 {
	all := make([]uint32, 0, n-1)
	for asn := uint32(1); asn < n; asn++ {
		all = append(all, asn)
	}
	return all
}

func workerKey(asn uint32) string {
	// the rendezvous hasher wants a string; formatting once per AS is
	// cheap next to the per-prefix work each worker then does.
	return strconv.FormatUint(uint64(asn), 10)
}
