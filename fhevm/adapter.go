// Package fhevm is the client adapter for contracts that keep encrypted
// state. It fetches the key material of a network, encrypts plaintext values
// into handles plus an input proof bound to a contract and a submitter, and
// runs the user decryption protocol to recover plaintexts from handles.
//
// Every operation fetches fresh key material and shares no state with other
// operations. Cancellation and deadlines come from the context; the adapter
// adds no timeouts and never retries.
package fhevm

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/vocdoni/nebula-fhevm/api/client"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/protocol"
	"github.com/vocdoni/nebula-fhevm/types"
)

// Signer is the wallet capability used to authorize decryptions.
type Signer interface {
	// SignTypedData returns the EIP-712 signature of data. An error means
	// the user did not sign.
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
	// Address returns the account address.
	Address() common.Address
	// ChainID returns the chain the wallet is connected to.
	ChainID() uint64
}

// NetworkResolver returns the configuration bundle for a chain.
type NetworkResolver func(chainID uint64) (*config.Network, error)

// Adapter runs encryption and decryption sessions.
type Adapter struct {
	networks   NetworkResolver
	httpClient *http.Client
	fetcher    BlobFetcher
	now        func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithNetworkResolver replaces the built-in network bundles. By default a
// chain without a built-in bundle uses the default one.
func WithNetworkResolver(r NetworkResolver) Option {
	return func(a *Adapter) { a.networks = r }
}

// WithHTTPClient sets the HTTP client used to reach the services.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Adapter) { a.httpClient = hc }
}

// WithBlobFetcher sets the capability used to download key material. By
// default the relayer HTTP client of the network is used.
func WithBlobFetcher(f BlobFetcher) Option {
	return func(a *Adapter) { a.fetcher = f }
}

// WithClock sets the clock used for the start of validity windows.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New returns an Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		networks:   defaultNetworks,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func defaultNetworks(chainID uint64) (*config.Network, error) {
	return config.ResolveNetwork(chainID), nil
}

// open resolves the network and transport of chainID, fetches fresh key
// material and builds the Instance.
func (a *Adapter) open(ctx context.Context, chainID uint64) (Instance, error) {
	network, err := a.networks(chainID)
	if err != nil {
		return nil, ErrKeyMaterialUnavailable.WithErr(err)
	}
	mode := SelectTransport(chainID)
	cli, err := client.NewWithHTTPClient(network.RelayerURL, a.httpClient)
	if err != nil {
		return nil, ErrKeyMaterialUnavailable.WithErr(err)
	}
	fetcher := a.fetcher
	if fetcher == nil {
		fetcher = cli
	}
	kf := &KeyFetcher{Fetcher: fetcher, Network: network}
	km, err := kf.FetchKeyMaterial(ctx, mode)
	if err != nil {
		return nil, err
	}
	return NewInstance(mode, network, km, cli)
}

// Encrypt encrypts values for contract on behalf of submitter. Every value
// must fit in 32 bits; the returned handles follow the order of values.
func (a *Adapter) Encrypt(ctx context.Context, contract, submitter common.Address, values []uint64,
	chainID uint64,
) (*Encrypted, error) {
	if len(values) == 0 {
		return nil, ErrInvalidPlaintextValue.With("no values to encrypt")
	}
	for i, v := range values {
		if v > math.MaxUint32 {
			return nil, ErrInvalidPlaintextValue.Withf("value %d: %d does not fit in 32 bits", i, v)
		}
	}
	inst, err := a.open(ctx, chainID)
	if err != nil {
		return nil, err
	}
	input := inst.CreateEncryptedInput(contract, submitter)
	for _, v := range values {
		if err := input.AddUint(v); err != nil {
			return nil, err
		}
	}
	return input.Encrypt(ctx)
}

// SessionState is a step of a decryption session.
type SessionState int

const (
	StateInit SessionState = iota
	StateKeypairGenerated
	StateRequestBuilt
	StateAwaitingSignature
	StateRequesting
	StateComplete
	StateFailed
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateKeypairGenerated:
		return "keypairGenerated"
	case StateRequestBuilt:
		return "requestBuilt"
	case StateAwaitingSignature:
		return "awaitingSignature"
	case StateRequesting:
		return "requesting"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// decryptSession tracks one run of the user decryption protocol.
type decryptSession struct {
	id    string
	state SessionState
}

func (s *decryptSession) enter(state SessionState) {
	s.state = state
	log.Debugw("decryption session", "session", s.id, "state", state.String())
}

func (s *decryptSession) fail(err error) error {
	s.state = StateFailed
	if errors.Is(err, ErrUserRejectedSignature) {
		log.Infow("decryption not authorized by the user", "session", s.id)
	} else {
		log.Warnw("decryption session failed", "session", s.id, "error", err.Error())
	}
	return err
}

// Decrypt recovers the plaintexts of handles owned by contract. The signer
// authorizes a fresh ephemeral keypair for DefaultDurationDays starting now;
// if it refuses, Decrypt fails with ErrUserRejectedSignature and no request
// reaches the decryption service. Handles missing from the result read as
// zero through DecryptionResult.Project. An empty handle list fails with
// ErrDecryptionServiceError and a nil signer with ErrUserRejectedSignature,
// both before any network traffic.
func (a *Adapter) Decrypt(ctx context.Context, contract common.Address, handles []types.Handle,
	user common.Address, chainID uint64, signer Signer,
) (DecryptionResult, error) {
	if len(handles) == 0 {
		return nil, ErrDecryptionServiceError.With("no handles to decrypt")
	}
	if signer == nil {
		return nil, ErrUserRejectedSignature.With("no signer")
	}
	s := &decryptSession{id: uuid.NewString()}
	s.enter(StateInit)
	inst, err := a.open(ctx, chainID)
	if err != nil {
		return nil, s.fail(err)
	}

	kp, err := inst.GenerateKeypair()
	if err != nil {
		return nil, s.fail(ErrDecryptionServiceError.Withf("cannot generate keypair: %v", err))
	}
	s.enter(StateKeypairGenerated)

	contracts := []common.Address{contract}
	window := protocol.NewValidityWindow(a.now())
	td := inst.CreateEIP712(kp.PublicKey, contracts, window)
	s.enter(StateRequestBuilt)

	s.enter(StateAwaitingSignature)
	sig, err := signer.SignTypedData(ctx, td)
	if err != nil {
		return nil, s.fail(ErrUserRejectedSignature.WithErr(err))
	}

	s.enter(StateRequesting)
	req := &UserDecryptRequest{
		Pairs:     make([]HandleContractPair, len(handles)),
		Keypair:   kp,
		Signature: sig,
		Contracts: contracts,
		User:      user,
		Window:    window,
	}
	for i, h := range handles {
		req.Pairs[i] = HandleContractPair{Handle: h, Contract: contract}
	}
	result, err := inst.UserDecrypt(ctx, req)
	if err != nil {
		return nil, s.fail(err)
	}
	s.enter(StateComplete)
	return result, nil
}
