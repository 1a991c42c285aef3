// Package asgraph holds the dense AS-relationship graph and the
// provider-customer rank flattening that drives propagation ordering.
package asgraph

import "github.com/JosephPizzuti/BGP-Simulator/internal/simerr"

// Node holds one AS's neighbour lists. Adjacency is stored as ASN
// integers, never as pointers into other nodes: neighbour lookup always
// goes back through the Graph arena.
type Node struct {
	Providers []uint32
	Customers []uint32
	Peers     []uint32
}

// Graph is a dense array of Node indexed by ASN, sized once from a
// first pass over the relationship file and immutable once every edge
// has been added.
type Graph struct {
	nodes []Node
}

// New allocates a graph large enough to index every ASN up to maxASN.
func New(maxASN uint32) *Graph {
	return &Graph{nodes: make([]Node, maxASN+1)}
}

// MaxASN returns the highest indexable ASN.
func (g *Graph) MaxASN() uint32 {
	return uint32(len(g.nodes) - 1)
}

// Node returns the adjacency lists for asn. Callers must not mutate the
// returned slices.
func (g *Graph) Node(asn uint32) *Node {
	return &g.nodes[asn]
}

// AddProviderCustomer records that provider is a provider of customer.
// Silently a no-op if either endpoint is outside the pre-allocated arena.
func (g *Graph) AddProviderCustomer(provider, customer uint32) {
	if int(provider) >= len(g.nodes) || int(customer) >= len(g.nodes) {
		return
	}
	g.nodes[provider].Customers = append(g.nodes[provider].Customers, customer)
	g.nodes[customer].Providers = append(g.nodes[customer].Providers, provider)
}

// AddPeer records a symmetric peering between a and b.
func (g *Graph) AddPeer(a, b uint32) {
	if int(a) >= len(g.nodes) || int(b) >= len(g.nodes) {
		return
	}
	g.nodes[a].Peers = append(g.nodes[a].Peers, b)
	g.nodes[b].Peers = append(g.nodes[b].Peers, a)
}

// visitState is used by the cycle-detecting DFS.
type visitState uint8

const (
	unvisited visitState = iota
	active
	finished
)

// HasProviderCycle runs a three-colour DFS over the provider→customer
// edges and reports whether a back-edge (and thus a cycle) exists.
func (g *Graph) HasProviderCycle() (bool, uint32) {
	state := make([]visitState, len(g.nodes))

	var dfs func(u uint32) bool
	dfs = func(u uint32) bool {
		state[u] = active
		for _, c := range g.nodes[u].Customers {
			if state[c] == active {
				return true
			}
			if state[c] == unvisited && dfs(c) {
				return true
			}
		}
		state[u] = finished
		return false
	}

	for asn := uint32(1); asn < uint32(len(g.nodes)); asn++ {
		if state[asn] == unvisited {
			if dfs(asn) {
				return true, asn
			}
		}
	}
	return false, 0
}

// Layers is an ordered sequence of ASN sets: Layers[0] holds sinks of the
// provider→customer DAG, Layers[r] holds ASes whose every customer sits
// at rank <= r-1.
type Layers [][]uint32

// Flatten computes propagation ranks via Kahn's algorithm and groups
// ASes into layers ordered from leaves (rank 0) to roots. ASes with no
// relationships at all (rank -1, unreachable) are omitted.
func (g *Graph) Flatten() (Layers, error) {
	if cyclic, asn := g.HasProviderCycle(); cyclic {
		return nil, &simerr.CycleError{Reason: "dfs", ASN: asn}
	}

	n := uint32(len(g.nodes))
	remaining := make([]int, n)
	rank := make([]int, n)
	for asn := uint32(1); asn < n; asn++ {
		rank[asn] = -1
	}

	queue := make([]uint32, 0, n)
	for asn := uint32(1); asn < n; asn++ {
		node := &g.nodes[asn]
		if len(node.Providers) == 0 && len(node.Customers) == 0 && len(node.Peers) == 0 {
			continue // no relationships at all: leave rank at -1
		}
		remaining[asn] = len(node.Customers)
		if remaining[asn] == 0 {
			rank[asn] = 0
			queue = append(queue, asn)
		}
	}

	processed := 0
	head := 0
	maxRank := 0
	for head < len(queue) {
		u := queue[head]
		head++
		processed++

		for _, p := range g.nodes[u].Providers {
			if candidate := rank[u] + 1; candidate > rank[p] {
				rank[p] = candidate
			}
			if candidate := rank[u] + 1; candidate > maxRank {
				maxRank = candidate
			}
			remaining[p]--
			if remaining[p] == 0 {
				queue = append(queue, p)
			}
		}
	}

	for asn := uint32(1); asn < n; asn++ {
		node := &g.nodes[asn]
		hasEdges := len(node.Providers) > 0 || len(node.Customers) > 0 || len(node.Peers) > 0
		if hasEdges && remaining[asn] > 0 {
			return nil, &simerr.CycleError{Reason: "residual", ASN: asn}
		}
	}

	layers := make(Layers, maxRank+1)
	for asn := uint32(1); asn < n; asn++ {
		if rank[asn] < 0 {
			continue
		}
		layers[rank[asn]] = append(layers[rank[asn]], asn)
	}
	return layers, nil
}
