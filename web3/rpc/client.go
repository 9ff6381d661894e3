package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/nebula-fhevm/log"
)

// Client is a bind.ContractBackend and bind.DeployBackend over the endpoints
// of one chain in a Web3Pool. A call that fails because of the endpoint is
// retried on the next one; errors returned by the chain itself (reverts,
// missing receipts) and context errors are returned as they are.
type Client struct {
	w3p     *Web3Pool
	chainID uint64
}

// ChainID returns the chain the client talks to.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// chainErrors are returned by healthy endpoints and must not disable them.
var chainErrors = []string{
	"execution reverted",
	"nonce too low",
	"insufficient funds",
	"already known",
	"replacement transaction underpriced",
}

func isEndpointError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ethereum.NotFound) {
		return false
	}
	msg := err.Error()
	for _, e := range chainErrors {
		if strings.Contains(msg, e) {
			return false
		}
	}
	return true
}

// retry runs fn on the current endpoint of the chain, moving to the next one
// while the error belongs to the endpoint.
func retry[T any](c *Client, method string, fn func(*ethclient.Client) (T, error)) (T, error) {
	var zero T
	attempts := c.w3p.NumberOfEndpoints(c.chainID, false)
	if attempts == 0 {
		return zero, fmt.Errorf("no endpoints for chainID %d", c.chainID)
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		endpoint, err := c.w3p.Endpoint(c.chainID)
		if err != nil {
			return zero, err
		}
		res, err := fn(endpoint.client)
		if err == nil {
			return res, nil
		}
		if !isEndpointError(err) {
			return zero, err
		}
		log.Warnw("web3 endpoint failed", "chainID", c.chainID, "uri", endpoint.URI,
			"method", method, "error", err.Error())
		c.w3p.DisableEndpoint(c.chainID, endpoint.URI)
		lastErr = err
	}
	return zero, fmt.Errorf("%s failed on every endpoint: %w", method, lastErr)
}

// BlockNumber returns the most recent block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return retry(c, "BlockNumber", func(cli *ethclient.Client) (uint64, error) {
		return cli.BlockNumber(ctx)
	})
}

// CodeAt implements bind.ContractCaller.
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return retry(c, "CodeAt", func(cli *ethclient.Client) ([]byte, error) {
		return cli.CodeAt(ctx, account, blockNumber)
	})
}

// CallContract implements bind.ContractCaller.
func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return retry(c, "CallContract", func(cli *ethclient.Client) ([]byte, error) {
		return cli.CallContract(ctx, call, blockNumber)
	})
}

// HeaderByNumber implements bind.ContractTransactor.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return retry(c, "HeaderByNumber", func(cli *ethclient.Client) (*types.Header, error) {
		return cli.HeaderByNumber(ctx, number)
	})
}

// PendingCodeAt implements bind.ContractTransactor.
func (c *Client) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return retry(c, "PendingCodeAt", func(cli *ethclient.Client) ([]byte, error) {
		return cli.PendingCodeAt(ctx, account)
	})
}

// PendingNonceAt implements bind.ContractTransactor.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return retry(c, "PendingNonceAt", func(cli *ethclient.Client) (uint64, error) {
		return cli.PendingNonceAt(ctx, account)
	})
}

// SuggestGasPrice implements bind.ContractTransactor.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return retry(c, "SuggestGasPrice", func(cli *ethclient.Client) (*big.Int, error) {
		return cli.SuggestGasPrice(ctx)
	})
}

// SuggestGasTipCap implements bind.ContractTransactor.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return retry(c, "SuggestGasTipCap", func(cli *ethclient.Client) (*big.Int, error) {
		return cli.SuggestGasTipCap(ctx)
	})
}

// EstimateGas implements bind.ContractTransactor.
func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return retry(c, "EstimateGas", func(cli *ethclient.Client) (uint64, error) {
		return cli.EstimateGas(ctx, call)
	})
}

// SendTransaction implements bind.ContractTransactor.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := retry(c, "SendTransaction", func(cli *ethclient.Client) (struct{}, error) {
		return struct{}{}, cli.SendTransaction(ctx, tx)
	})
	return err
}

// FilterLogs implements bind.ContractFilterer.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return retry(c, "FilterLogs", func(cli *ethclient.Client) ([]types.Log, error) {
		return cli.FilterLogs(ctx, query)
	})
}

// SubscribeFilterLogs implements bind.ContractFilterer. Subscriptions stay
// on the endpoint that accepted them.
func (c *Client) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery,
	ch chan<- types.Log,
) (ethereum.Subscription, error) {
	return retry(c, "SubscribeFilterLogs", func(cli *ethclient.Client) (ethereum.Subscription, error) {
		return cli.SubscribeFilterLogs(ctx, query, ch)
	})
}

// TransactionReceipt implements bind.DeployBackend.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return retry(c, "TransactionReceipt", func(cli *ethclient.Client) (*types.Receipt, error) {
		return cli.TransactionReceipt(ctx, txHash)
	})
}
