package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/util"
	"github.com/vocdoni/nebula-fhevm/web3/rpc"
)

const (
	web3QueryTimeout = 10 * time.Second
	// waitTxPollInterval is how often WaitTx asks for the receipt.
	waitTxPollInterval = time.Second
	defaultGasLimit    = 10_000_000
)

// Backend is what Contracts needs from the chain: contract calls,
// transactions, logs and receipts. rpc.Client implements it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Contracts contains the bindings to the NebulaVoteHub deployment.
type Contracts struct {
	ChainID  uint64
	hub      *NebulaVoteHub
	web3pool *rpc.Web3Pool
	cli      Backend
	privKey  *ecdsa.PrivateKey
	address  common.Address

	monitorMu      sync.Mutex
	knownMotions   map[uint64]struct{}
	lastWatchBlock uint64
}

// NewContracts creates a new Contracts instance for the hub at address with
// the given web3 endpoint.
func NewContracts(hub common.Address, web3rpc string) (*Contracts, error) {
	w3pool := rpc.NewWeb3Pool()
	chainID, err := w3pool.AddEndpoint(web3rpc)
	if err != nil {
		return nil, fmt.Errorf("failed to add web3 endpoint: %w", err)
	}
	cli, err := w3pool.Client(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	c := NewContractsWithBackend(hub, chainID, cli)
	c.web3pool = w3pool
	return c, nil
}

// NewContractsWithBackend binds the hub at address through an existing
// backend, such as a simulated chain.
func NewContractsWithBackend(hub common.Address, chainID uint64, backend Backend) *Contracts {
	return &Contracts{
		ChainID:      chainID,
		hub:          NewNebulaVoteHub(hub, backend),
		cli:          backend,
		knownMotions: make(map[uint64]struct{}),
	}
}

// AddWeb3Endpoint adds a new web3 endpoint to the pool.
func (c *Contracts) AddWeb3Endpoint(web3rpc string) error {
	if c.web3pool == nil {
		return fmt.Errorf("contracts not backed by a web3 pool")
	}
	chainID, err := c.web3pool.AddEndpoint(web3rpc)
	if err != nil {
		return err
	}
	if chainID != c.ChainID {
		c.web3pool.DisableEndpoint(chainID, web3rpc)
		return fmt.Errorf("endpoint %s serves chain %d, expected %d", web3rpc, chainID, c.ChainID)
	}
	return nil
}

// SetAccountPrivateKey sets the private key to be used for signing transactions.
func (c *Contracts) SetAccountPrivateKey(hexPrivKey string) error {
	var err error
	c.privKey, err = crypto.HexToECDSA(util.TrimHex(hexPrivKey))
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	c.address = crypto.PubkeyToAddress(c.privKey.PublicKey)
	return nil
}

// AccountAddress returns the address of the account used to sign transactions.
func (c *Contracts) AccountAddress() common.Address {
	return c.address
}

// HubAddress returns the address of the NebulaVoteHub contract.
func (c *Contracts) HubAddress() common.Address {
	return c.hub.Address()
}

// NetworkChainID returns the chain the contracts live on.
func (c *Contracts) NetworkChainID() uint64 {
	return c.ChainID
}

// authTransactOpts helper method creates the transact options with the
// configured private key. It sets the nonce, gas tip cap, and gas limit.
func (c *Contracts) authTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if c.privKey == nil {
		return nil, fmt.Errorf("no private key set")
	}
	bChainID := new(big.Int).SetUint64(c.ChainID)
	auth, err := bind.NewKeyedTransactorWithChainID(c.privKey, bChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	log.Debugw("getting nonce", "address", c.address.Hex())
	nonce, err := c.cli.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	if auth.GasTipCap, err = c.cli.SuggestGasTipCap(ctx); err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	auth.GasLimit = defaultGasLimit
	return auth, nil
}

// transact builds the options, runs send and returns the tx hash.
func (c *Contracts) transact(ctx context.Context, name string,
	send func(*bind.TransactOpts) (*gethtypes.Transaction, error),
) (common.Hash, error) {
	opts, err := c.authTransactOpts(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}
	opts.Context = ctx
	tx, err := send(opts)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to %s: %w", name, err)
	}
	log.Debugw("transaction sent", "method", name, "hash", tx.Hash().Hex(), "nonce", tx.Nonce())
	return tx.Hash(), nil
}

func callOpts(ctx context.Context) (*bind.CallOpts, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	return &bind.CallOpts{Context: ctx}, cancel
}

// WaitTx waits until the transaction is mined or the timeout expires. A
// reverted transaction is an error.
func (c *Contracts) WaitTx(hash common.Hash, timeout time.Duration) error {
	_, err := c.waitReceipt(context.Background(), hash, timeout)
	return err
}

func (c *Contracts) waitReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*gethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		receipt, err := c.cli.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != gethtypes.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return receipt, nil
		case !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("failed to get receipt of %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction %s: %w", hash.Hex(), ctx.Err())
		case <-time.After(waitTxPollInterval):
		}
	}
}
