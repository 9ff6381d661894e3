package config

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestNetworkByChainID(t *testing.T) {
	c := qt.New(t)

	n, err := NetworkByChainID(SepoliaChainID)
	c.Assert(err, qt.IsNil)
	c.Assert(n.RelayerURL, qt.Equals, SepoliaRelayerURL)
	c.Assert(n.GatewayChainID, qt.Equals, uint64(SepoliaGatewayChainID))

	// returned bundles are copies
	n.Web3RPCs[0] = "http://changed"
	c.Assert(Sepolia.Web3RPCs[0], qt.Not(qt.Equals), "http://changed")

	_, err = NetworkByChainID(1)
	c.Assert(err, qt.ErrorMatches, "no network bundle configured for chain 1")
}

func TestResolveNetwork(t *testing.T) {
	c := qt.New(t)

	c.Assert(ResolveNetwork(SepoliaChainID).RelayerURL, qt.Equals, SepoliaRelayerURL)

	n := ResolveNetwork(5)
	c.Assert(n.ChainID, qt.Equals, uint64(5))
	c.Assert(n.RelayerURL, qt.Equals, LocalRelayerURL)
	c.Assert(n.ACLContract, qt.Equals, Localhost.ACLContract)
	c.Assert(Localhost.ChainID, qt.Equals, uint64(LocalChainID))
}

func TestHasStaticKeys(t *testing.T) {
	c := qt.New(t)

	n := Localhost.Copy()
	c.Assert(n.HasStaticKeys(), qt.IsFalse)
	n.PublicKey = &StaticKey{ID: "pk", Path: "/tmp/pk.bin"}
	c.Assert(n.HasStaticKeys(), qt.IsFalse)
	n.PublicParams = &StaticKey{ID: "crs", Path: "/tmp/crs.bin"}
	c.Assert(n.HasStaticKeys(), qt.IsTrue)

	cp := n.Copy()
	cp.PublicKey.Path = "/other"
	c.Assert(n.PublicKey.Path, qt.Equals, "/tmp/pk.bin")
}
