package wire

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vocdoni/nebula-fhevm/types"
)

// KeyURLResponse is the key material metadata document.
type KeyURLResponse struct {
	Response KeyURLInfo `json:"response"`
}

// KeyURLInfo lists the public keys and the public parameters (CRS) by class.
type KeyURLInfo struct {
	FheKeyInfo []FheKeyInfo          `json:"fhe_key_info"`
	CRS        map[string]KeyBlobRef `json:"crs"`
}

// FheKeyInfo describes one FHE public key.
type FheKeyInfo struct {
	FhePublicKey KeyBlobRef `json:"fhe_public_key"`
}

// KeyBlobRef identifies a binary blob and where to download it from.
type KeyBlobRef struct {
	DataID string   `json:"data_id"`
	URLs   []string `json:"urls"`
}

// InputProofRequest asks the relayer to verify an encrypted input bound to
// (ContractAddress, UserAddress, ContractChainID).
type InputProofRequest struct {
	ContractAddress                 common.Address `json:"contractAddress"`
	UserAddress                     common.Address `json:"userAddress"`
	CiphertextWithInputVerification types.HexBytes `json:"ciphertextWithInputVerification"`
	ContractChainID                 hexutil.Uint64 `json:"contractChainId"`
	ExtraData                       types.HexBytes `json:"extraData"`
}

// InputProofResponse carries the handles of the verified input and one
// signature per coprocessor.
type InputProofResponse struct {
	Response InputProofResult `json:"response"`
}

// InputProofResult is the body of InputProofResponse.
type InputProofResult struct {
	Handles    []types.Handle   `json:"handles"`
	Signatures []types.HexBytes `json:"signatures"`
}

// HandleContractPair is a handle and the contract it belongs to.
type HandleContractPair struct {
	Handle          types.Handle   `json:"handle"`
	ContractAddress common.Address `json:"contractAddress"`
}

// RequestValidity is the time window a user decryption signature covers.
// Both values are decimal strings.
type RequestValidity struct {
	StartTimestamp string `json:"startTimestamp"`
	DurationDays   string `json:"durationDays"`
}

// UserDecryptRequest asks the relayer to re-encrypt the plaintexts of the
// handles for the holder of PublicKey. Signature is the EIP-712 signature of
// UserAddress over the public key, contracts and validity window.
type UserDecryptRequest struct {
	HandleContractPairs []HandleContractPair `json:"handleContractPairs"`
	RequestValidity     RequestValidity      `json:"requestValidity"`
	ContractsChainID    string               `json:"contractsChainId"`
	ContractAddresses   []common.Address     `json:"contractAddresses"`
	UserAddress         common.Address       `json:"userAddress"`
	Signature           types.HexBytes       `json:"signature"`
	PublicKey           types.HexBytes       `json:"publicKey"`
	ExtraData           types.HexBytes       `json:"extraData"`
}

// UserDecryptResponse holds one share per KMS signer. The development relayer
// runs a single signer, so there is always one share.
type UserDecryptResponse struct {
	Response []UserDecryptShare `json:"response"`
}

// UserDecryptShare is an ECIES ciphertext of a DecryptedValues document,
// encrypted to the request public key and signed by the KMS.
type UserDecryptShare struct {
	Payload   types.HexBytes `json:"payload"`
	Signature types.HexBytes `json:"signature"`
}

// DecryptedValues maps each handle to its plaintext.
type DecryptedValues map[types.Handle]uint64

// AggregateRequest asks for the homomorphic sum of handles owned by
// ContractAddress.
type AggregateRequest struct {
	ContractAddress common.Address `json:"contractAddress"`
	Handles         []types.Handle `json:"handles"`
}

// AggregateResponse is the handle of the sum.
type AggregateResponse struct {
	Handle types.Handle `json:"handle"`
}

// SignersResponse lists the addresses the relayer signs with.
type SignersResponse struct {
	KMS          common.Address   `json:"kms"`
	Coprocessors []common.Address `json:"coprocessors"`
}
