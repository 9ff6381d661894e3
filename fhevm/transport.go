package fhevm

import "github.com/vocdoni/nebula-fhevm/config"

// TransportMode selects how the adapter reaches the key custody and
// decryption services.
type TransportMode int

const (
	// TransportDefault uses the library defaults of the network bundle.
	TransportDefault TransportMode = iota
	// TransportRelayer goes through the hosted relayer.
	TransportRelayer
)

// String implements fmt.Stringer.
func (m TransportMode) String() string {
	switch m {
	case TransportRelayer:
		return "relayer"
	case TransportDefault:
		return "default"
	}
	return "unknown"
}

// SelectTransport returns the transport for chainID: the relayer on the
// public test network, the library defaults anywhere else.
func SelectTransport(chainID uint64) TransportMode {
	if chainID == config.SepoliaChainID {
		return TransportRelayer
	}
	return TransportDefault
}
