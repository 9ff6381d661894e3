package rpc

// This package contains the Web3Pool struct, a pool of Web3Endpoint instances
// grouped by chainID. It provides an implementation of the
// bind.ContractBackend and bind.DeployBackend interfaces for a specific
// chainID that balances the calls between the available endpoints, flagging
// as disabled the ones that fail. If every endpoint fails for a chainID, the
// pool resets the available flag for all the endpoints and starts again.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/nebula-fhevm/log"
)

const (
	// DefaultMaxWeb3ClientRetries is the default number of retries to connect to
	// a web3 provider.
	DefaultMaxWeb3ClientRetries = 5
	// checkWeb3EndpointsTimeout is the timeout to check the web3 endpoints.
	checkWeb3EndpointsTimeout = time.Second * 10
)

// Web3Endpoint is a web3 provider of a chain.
type Web3Endpoint struct {
	ChainID uint64 `json:"chainId"`
	URI     string `json:"uri"`
	client  *ethclient.Client
}

// Web3Pool struct contains a map of chainID-[]*Web3Endpoint, where the key
// is the chainID and the value is the iterator over its endpoints.
type Web3Pool struct {
	mu        sync.RWMutex
	endpoints map[uint64]*Web3Iterator
}

// NewWeb3Pool method returns a new *Web3Pool instance.
func NewWeb3Pool() *Web3Pool {
	return &Web3Pool{
		endpoints: make(map[uint64]*Web3Iterator),
	}
}

// AddEndpoint method adds a new web3 provider URI to the Web3Pool.
// It returns the chainID of the endpoint added to the pool.
func (nm *Web3Pool) AddEndpoint(uri string) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkWeb3EndpointsTimeout)
	defer cancel()
	client, err := connect(ctx, uri)
	if err != nil {
		return 0, err
	}
	bChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return 0, fmt.Errorf("error getting the chainID from the web3 provider '%s': %w", uri, err)
	}
	chainID := bChainID.Uint64()
	nm.add(&Web3Endpoint{
		ChainID: chainID,
		URI:     uri,
		client:  client,
	})
	log.Debugw("web3 endpoint added", "chainID", chainID, "uri", uri)
	return chainID, nil
}

func (nm *Web3Pool) add(endpoint *Web3Endpoint) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if it, ok := nm.endpoints[endpoint.ChainID]; ok {
		it.Add(endpoint)
		return
	}
	nm.endpoints[endpoint.ChainID] = NewWeb3Iterator(endpoint)
}

// DelEndpoint method disables a web3 provider URI in every chain where it was
// found.
func (nm *Web3Pool) DelEndpoint(uri string) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	for _, endpoints := range nm.endpoints {
		endpoints.Disable(uri)
	}
}

// Endpoint method returns the Web3Endpoint configured for the chainID
// provided. It returns the first available endpoint. If no available endpoint
// is found, returns an error.
func (nm *Web3Pool) Endpoint(chainID uint64) (*Web3Endpoint, error) {
	nm.mu.RLock()
	endpoints, ok := nm.endpoints[chainID]
	nm.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no endpoint found for chainID %d", chainID)
	}
	return endpoints.Next()
}

// DisableEndpoint method sets the available flag to false for the URI provided
// in the chainID provided.
func (nm *Web3Pool) DisableEndpoint(chainID uint64, uri string) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	if endpoints, ok := nm.endpoints[chainID]; ok {
		endpoints.Disable(uri)
	}
}

// NumberOfEndpoints method returns the total number (or just the available ones)
// of endpoints for the chainID provided.
func (nm *Web3Pool) NumberOfEndpoints(chainID uint64, onlyAvailable bool) int {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	if endpoints, ok := nm.endpoints[chainID]; ok {
		n := endpoints.Available()
		if !onlyAvailable {
			n += endpoints.Disabled()
		}
		return n
	}
	return 0
}

// Client method returns a new *Client instance for the chainID provided.
// It returns an error if the endpoint is not found.
func (nm *Web3Pool) Client(chainID uint64) (*Client, error) {
	if _, err := nm.Endpoint(chainID); err != nil {
		return nil, fmt.Errorf("error getting endpoint for chainID %d: %w", chainID, err)
	}
	return &Client{w3p: nm, chainID: chainID}, nil
}

// connect method returns a new *ethclient.Client instance for the URI provided.
// It retries to connect to the web3 provider if it fails, up to the
// DefaultMaxWeb3ClientRetries times.
func connect(ctx context.Context, uri string) (client *ethclient.Client, err error) {
	for i := 0; i < DefaultMaxWeb3ClientRetries; i++ {
		if client, err = ethclient.DialContext(ctx, uri); err != nil {
			continue
		}
		return
	}
	return nil, fmt.Errorf("error dialing web3 provider uri '%s': %w", uri, err)
}
