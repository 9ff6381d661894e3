package fhevm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vocdoni/nebula-fhevm/api/client"
	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/crypto/fhe"
	"github.com/vocdoni/nebula-fhevm/protocol"
	"github.com/vocdoni/nebula-fhevm/types"
)

// Instance is a configured connection to the confidential computation
// services of one network, built from fresh key material.
type Instance interface {
	// Mode returns the transport the instance was built for.
	Mode() TransportMode
	// CreateEncryptedInput opens an input bound to contract and user.
	CreateEncryptedInput(contract, user common.Address) *EncryptedInput
	// GenerateKeypair returns a new ephemeral keypair.
	GenerateKeypair() (*Keypair, error)
	// CreateEIP712 builds the payload the user signs to authorize a
	// decryption for the holder of publicKey.
	CreateEIP712(publicKey []byte, contracts []common.Address, window protocol.ValidityWindow) apitypes.TypedData
	// UserDecrypt runs the user decryption request.
	UserDecrypt(ctx context.Context, req *UserDecryptRequest) (DecryptionResult, error)
}

// HandleContractPair is a handle to decrypt and the contract that owns it.
type HandleContractPair struct {
	Handle   types.Handle
	Contract common.Address
}

// UserDecryptRequest is a signed user decryption request.
type UserDecryptRequest struct {
	Pairs     []HandleContractPair
	Keypair   *Keypair
	Signature []byte
	Contracts []common.Address
	User      common.Address
	Window    protocol.ValidityWindow
}

// NewInstance returns the Instance implementation for mode. The key material
// is checked to be usable by the library.
func NewInstance(mode TransportMode, network *config.Network, km *KeyMaterial,
	cli *client.HTTPclient,
) (Instance, error) {
	if err := km.Validate(); err != nil {
		return nil, ErrKeyMaterialUnavailable.WithErr(err)
	}
	enc, err := fhe.NewEncryptor(km.PublicKey, km.PublicParams)
	if err != nil {
		return nil, ErrKeyMaterialUnavailable.WithErr(err)
	}
	base := &baseInstance{
		network: network,
		keys:    km,
		enc:     enc,
		cli:     cli,
	}
	switch mode {
	case TransportRelayer:
		base.extraData = relayerExtraData
		return &relayerInstance{base}, nil
	case TransportDefault:
		return &defaultInstance{base}, nil
	}
	return nil, fmt.Errorf("unknown transport mode %d", mode)
}

// relayerExtraData is the extra data version byte expected by the hosted
// relayer.
var relayerExtraData = []byte{0x00}

// relayerInstance talks to the hosted relayer.
type relayerInstance struct {
	*baseInstance
}

func (*relayerInstance) Mode() TransportMode { return TransportRelayer }

// defaultInstance uses the library defaults of the network bundle: pinned
// keys when present and the bundle service endpoint.
type defaultInstance struct {
	*baseInstance
}

func (*defaultInstance) Mode() TransportMode { return TransportDefault }

type baseInstance struct {
	network   *config.Network
	keys      *KeyMaterial
	enc       *fhe.Encryptor
	cli       *client.HTTPclient
	extraData []byte
}

func (b *baseInstance) CreateEncryptedInput(contract, user common.Address) *EncryptedInput {
	return &EncryptedInput{inst: b, contract: contract, user: user}
}

func (*baseInstance) GenerateKeypair() (*Keypair, error) {
	return GenerateKeypair()
}

func (b *baseInstance) CreateEIP712(publicKey []byte, contracts []common.Address,
	window protocol.ValidityWindow,
) apitypes.TypedData {
	return protocol.UserDecryptTypedData(b.network, publicKey, contracts, window, b.extraData)
}

func (b *baseInstance) UserDecrypt(ctx context.Context, req *UserDecryptRequest) (DecryptionResult, error) {
	body := &wire.UserDecryptRequest{
		HandleContractPairs: make([]wire.HandleContractPair, len(req.Pairs)),
		RequestValidity: wire.RequestValidity{
			StartTimestamp: strconv.FormatInt(req.Window.Start, 10),
			DurationDays:   strconv.FormatUint(req.Window.DurationDays, 10),
		},
		ContractsChainID:  strconv.FormatUint(b.network.ChainID, 10),
		ContractAddresses: req.Contracts,
		UserAddress:       req.User,
		Signature:         req.Signature,
		PublicKey:         req.Keypair.PublicKey,
		ExtraData:         b.extraData,
	}
	for i, p := range req.Pairs {
		body.HandleContractPairs[i] = wire.HandleContractPair{Handle: p.Handle, ContractAddress: p.Contract}
	}
	data, status, err := b.cli.Request(ctx, client.HTTPPOST, body, nil, wire.UserDecryptEndpoint)
	if err != nil {
		return nil, ErrDecryptionServiceError.WithErr(err)
	}
	if status != http.StatusOK {
		return nil, ErrDecryptionServiceError.Withf("status %d: %s", status, data)
	}
	resp := &wire.UserDecryptResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, ErrDecryptionServiceError.Withf("malformed response: %v", err)
	}
	result := make(DecryptionResult)
	for i, share := range resp.Response {
		plain, err := req.Keypair.Decrypt(share.Payload)
		if err != nil {
			return nil, ErrDecryptionServiceError.Withf("share %d: %v", i, err)
		}
		values := wire.DecryptedValues{}
		if err := json.Unmarshal(plain, &values); err != nil {
			return nil, ErrDecryptionServiceError.Withf("share %d: %v", i, err)
		}
		for h, v := range values {
			result[h] = v
		}
	}
	return result, nil
}

// requestInputProof sends the ciphertext list to the input verifier.
func (b *baseInstance) requestInputProof(ctx context.Context, contract, user common.Address,
	list []byte,
) (*wire.InputProofResult, error) {
	body := &wire.InputProofRequest{
		ContractAddress:                 contract,
		UserAddress:                     user,
		CiphertextWithInputVerification: list,
		ContractChainID:                 hexutil.Uint64(b.network.ChainID),
		ExtraData:                       b.extraData,
	}
	data, status, err := b.cli.Request(ctx, client.HTTPPOST, body, nil, wire.InputProofEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("input verification: status %d: %s", status, data)
	}
	resp := &wire.InputProofResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("malformed input verification response: %w", err)
	}
	return &resp.Response, nil
}
