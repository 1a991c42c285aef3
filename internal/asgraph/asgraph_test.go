package asgraph

import "testing"

func TestAddProviderCustomerSymmetry(t *testing.T) {
	g := New(5)
	g.AddProviderCustomer(1, 2)

	if got := g.Node(1).Customers; len(got) != 1 || got[0] != 2 {
		t.Errorf("Node(1).Customers = %v, want [2]", got)
	}
	if got := g.Node(2).Providers; len(got) != 1 || got[0] != 1 {
		t.Errorf("Node(2).Providers = %v, want [1]", got)
	}
}

func TestAddPeerSymmetry(t *testing.T) {
	g := New(5)
	g.AddPeer(1, 2)

	if got := g.Node(1).Peers; len(got) != 1 || got[0] != 2 {
		t.Errorf("Node(1).Peers = %v, want [2]", got)
	}
	if got := g.Node(2).Peers; len(got) != 1 || got[0] != 1 {
		t.Errorf("Node(2).Peers = %v, want [1]", got)
	}
}

func TestAddEdgeOutOfRangeIsNoOp(t *testing.T) {
	g := New(3)
	g.AddProviderCustomer(1, 99) // 99 exceeds the arena
	g.AddPeer(99, 1)

	if got := g.Node(1).Customers; len(got) != 0 {
		t.Errorf("expected no-op edge to be dropped, got %v", got)
	}
	if got := g.Node(1).Peers; len(got) != 0 {
		t.Errorf("expected no-op edge to be dropped, got %v", got)
	}
}

func TestHasProviderCycle(t *testing.T) {
	g := New(3)
	g.AddProviderCustomer(1, 2)
	g.AddProviderCustomer(2, 3)
	g.AddProviderCustomer(3, 1)

	cyclic, _ := g.HasProviderCycle()
	if !cyclic {
		t.Fatal("expected cycle to be detected")
	}
}

func TestFlattenRejectsCycle(t *testing.T) {
	g := New(3)
	g.AddProviderCustomer(1, 2)
	g.AddProviderCustomer(2, 3)
	g.AddProviderCustomer(3, 1)

	if _, err := g.Flatten(); err == nil {
		t.Fatal("expected Flatten to reject a provider cycle")
	}
}

func TestFlattenChain(t *testing.T) {
	// 1 is provider of 2, 2 is provider of 3: rank(3)=0, rank(2)=1, rank(1)=2.
	g := New(3)
	g.AddProviderCustomer(1, 2)
	g.AddProviderCustomer(2, 3)

	layers, err := g.Flatten()
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if len(layers) != 3 {
		t.Fatalf("expected 3 layers, got %d: %v", len(layers), layers)
	}
	if got := layers[0]; len(got) != 1 || got[0] != 3 {
		t.Errorf("layers[0] = %v, want [3]", got)
	}
	if got := layers[1]; len(got) != 1 || got[0] != 2 {
		t.Errorf("layers[1] = %v, want [2]", got)
	}
	if got := layers[2]; len(got) != 1 || got[0] != 1 {
		t.Errorf("layers[2] = %v, want [1]", got)
	}
}

func TestFlattenDiamond(t *testing.T) {
	// diamond topology: 1 provides 2 and 3, both of which provide 4.
	g := New(4)
	g.AddProviderCustomer(1, 2)
	g.AddProviderCustomer(1, 3)
	g.AddProviderCustomer(2, 4)
	g.AddProviderCustomer(3, 4)

	layers, err := g.Flatten()
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if len(layers[0]) != 1 || layers[0][0] != 4 {
		t.Errorf("layers[0] = %v, want [4]", layers[0])
	}
	if len(layers[len(layers)-1]) != 1 || layers[len(layers)-1][0] != 1 {
		t.Errorf("top layer = %v, want [1]", layers[len(layers)-1])
	}
}

func TestFlattenOmitsUnreachableASes(t *testing.T) {
	g := New(5)
	g.AddProviderCustomer(1, 2)
	// AS 4 has no relationships at all and must not appear in any layer.

	layers, err := g.Flatten()
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	for _, layer := range layers {
		for _, asn := range layer {
			if asn == 4 {
				t.Fatalf("unreachable AS 4 should not appear in layers, got %v", layers)
			}
		}
	}
}
