package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// SepoliaChainID is the chain identifier of the public test network
	// served by the hosted relayer.
	SepoliaChainID = 11155111
	// SepoliaGatewayChainID is the chain where the decryption and input
	// verification contracts live.
	SepoliaGatewayChainID = 55815
	// SepoliaRelayerURL is the hosted relayer (key custody, input
	// verification and user decryption).
	SepoliaRelayerURL = "https://relayer.testnet.zama.cloud"

	// LocalChainID is the chain id used by local development nodes.
	LocalChainID = 31337
	// LocalRelayerURL is the default address of cmd/relayer.
	LocalRelayerURL = "http://127.0.0.1:3311"

	// PublicParamsClass is the parameter class of the common reference string
	// requested from the key custody service.
	PublicParamsClass = "2048"
)

// StaticKey is a key blob provided by the static configuration bundle
// instead of the key custody service. Path points to the blob on disk and
// Hash, when set, is the hex encoded sha256 the content must match.
type StaticKey struct {
	ID   string
	Path string
	Hash string
}

// Network is a statically configured key/service bundle: every address and
// endpoint the adapter needs to talk to one deployment.
type Network struct {
	Name           string
	ChainID        uint64
	GatewayChainID uint64
	RelayerURL     string

	ACLContract           common.Address
	KMSContract           common.Address
	InputVerifierContract common.Address
	// DecryptionVerifier is the verifying contract of the user decryption
	// EIP-712 domain.
	DecryptionVerifier common.Address
	// InputVerification is the verifying contract of the input proof
	// EIP-712 domain.
	InputVerification common.Address

	// VoteHub is the NebulaVoteHub deployment on this network, if known.
	VoteHub common.Address
	// Web3RPCs are the public RPC endpoints of the network.
	Web3RPCs []string

	// PublicKey and PublicParams optionally pin the key material to local
	// files. Both must be set to be used.
	PublicKey    *StaticKey
	PublicParams *StaticKey
}

// HasStaticKeys reports whether the bundle carries its own key material.
func (n *Network) HasStaticKeys() bool {
	return n.PublicKey != nil && n.PublicParams != nil &&
		n.PublicKey.Path != "" && n.PublicParams.Path != ""
}

// Copy returns a deep copy of the network bundle.
func (n *Network) Copy() *Network {
	cp := *n
	cp.Web3RPCs = append([]string(nil), n.Web3RPCs...)
	if n.PublicKey != nil {
		pk := *n.PublicKey
		cp.PublicKey = &pk
	}
	if n.PublicParams != nil {
		pp := *n.PublicParams
		cp.PublicParams = &pp
	}
	return &cp
}

// Sepolia is the bundle for the public test network.
var Sepolia = Network{
	Name:                  "sepolia",
	ChainID:               SepoliaChainID,
	GatewayChainID:        SepoliaGatewayChainID,
	RelayerURL:            SepoliaRelayerURL,
	ACLContract:           common.HexToAddress("0x687820221192C5B662b25367F70076A37bc79b6c"),
	KMSContract:           common.HexToAddress("0x1364cBBf2cDF5032C47d8226a6f6FBD2AFCDacAC"),
	InputVerifierContract: common.HexToAddress("0xbc91f3daD1A5F19F8390c400196e58073B6a0BC4"),
	DecryptionVerifier:    common.HexToAddress("0xb6E160B1ff80D67Bfe90A85eE06Ce0A2613607D1"),
	InputVerification:     common.HexToAddress("0x7048C39f048125eDa9d678AEbaDfB22F7900a29F"),
	Web3RPCs: []string{
		"https://ethereum-sepolia-rpc.publicnode.com",
		"https://sepolia.gateway.tenderly.co",
		"https://1rpc.io/sepolia",
	},
}

// Localhost is the bundle for a local node plus cmd/relayer.
var Localhost = Network{
	Name:                  "localhost",
	ChainID:               LocalChainID,
	GatewayChainID:        LocalChainID,
	RelayerURL:            LocalRelayerURL,
	ACLContract:           common.HexToAddress("0x50157CFfD6bBFA2DECe204a89ec419c23ef5755D"),
	KMSContract:           common.HexToAddress("0xcCAe95fF1d11656358E782570dF0418F59fA40e1"),
	InputVerifierContract: common.HexToAddress("0x901F8942346f7AB3a01F6D7613119Bca447Bb030"),
	DecryptionVerifier:    common.HexToAddress("0xa02Cda4Ca3a71D7C46997716F4283aa851C28812"),
	InputVerification:     common.HexToAddress("0x812b06e1CDCE800494b79fFE4f925A504a9A9810"),
	Web3RPCs:              []string{"http://127.0.0.1:8545"},
}

// ResolveNetwork returns a copy of the built-in bundle for chainID. Chains
// without one get the default bundle, Localhost, carrying chainID.
func ResolveNetwork(chainID uint64) *Network {
	if n, err := NetworkByChainID(chainID); err == nil {
		return n
	}
	n := Localhost.Copy()
	n.ChainID = chainID
	return n
}

// NetworkByChainID returns a copy of the built-in bundle for chainID.
func NetworkByChainID(chainID uint64) (*Network, error) {
	switch chainID {
	case SepoliaChainID:
		return Sepolia.Copy(), nil
	case LocalChainID:
		return Localhost.Copy(), nil
	}
	return nil, fmt.Errorf("no network bundle configured for chain %d", chainID)
}
