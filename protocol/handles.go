// Package protocol holds the wire level definitions shared by the adapter
// and the relayer: how ciphertext handles are derived, the EIP-712 payloads
// that are signed, the input proof layout and the decryption validity window.
package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/nebula-fhevm/types"
)

// FheType identifies the encrypted type a handle points to.
type FheType uint8

const (
	FheTypeBool    FheType = 0
	FheTypeUint8   FheType = 2
	FheTypeUint16  FheType = 3
	FheTypeUint32  FheType = 4
	FheTypeUint64  FheType = 5
	FheTypeAddress FheType = 7
)

// HandleVersion is the handle layout version written in the last byte.
const HandleVersion = 0

// MaxHandlesPerInput is the maximum amount of values in one input, bounded by
// the one byte index embedded in every handle.
const MaxHandlesPerInput = 255

const handleDomainSeparator = "ZK-w_hdl"

// handle layout offsets
const (
	handleHashLength   = 21
	handleIndexOffset  = 21
	handleChainOffset  = 22
	handleTypeOffset   = 30
	handleVersionIndex = 31
)

// ComputeHandles derives the n handles of a ciphertext list. Every handle
// commits to the list content, its position, the ACL contract and the chain
// where it will be used.
func ComputeHandles(ciphertextList []byte, n int, fheType FheType,
	acl common.Address, chainID uint64,
) ([]types.Handle, error) {
	if n <= 0 || n > MaxHandlesPerInput {
		return nil, fmt.Errorf("invalid number of handles %d", n)
	}
	blobHash := crypto.Keccak256(ciphertextList)
	chain := make([]byte, 32)
	binary.BigEndian.PutUint64(chain[24:], chainID)

	handles := make([]types.Handle, n)
	for i := 0; i < n; i++ {
		h := crypto.Keccak256(
			[]byte(handleDomainSeparator),
			blobHash,
			[]byte{byte(i)},
			acl.Bytes(),
			chain,
		)
		copy(handles[i][:handleHashLength], h[:handleHashLength])
		handles[i][handleIndexOffset] = byte(i)
		binary.BigEndian.PutUint64(handles[i][handleChainOffset:handleTypeOffset], chainID)
		handles[i][handleTypeOffset] = byte(fheType)
		handles[i][handleVersionIndex] = HandleVersion
	}
	return handles, nil
}

// HandleIndex returns the position of the value inside its input.
func HandleIndex(h types.Handle) int {
	return int(h[handleIndexOffset])
}

// HandleChainID returns the chain the handle was created for.
func HandleChainID(h types.Handle) uint64 {
	return binary.BigEndian.Uint64(h[handleChainOffset:handleTypeOffset])
}

// HandleType returns the encrypted type of the handle.
func HandleType(h types.Handle) FheType {
	return FheType(h[handleTypeOffset])
}

// HandleVersionOf returns the layout version of the handle.
func HandleVersionOf(h types.Handle) uint8 {
	return h[handleVersionIndex]
}

// ComputedHandle derives the handle of a value that is the result of an
// operation over other handles (e.g. a homomorphic sum). It is not linked to
// any input and its index byte is 0xff.
func ComputedHandle(op string, fheType FheType, chainID uint64, operands ...types.Handle) types.Handle {
	data := [][]byte{[]byte(op)}
	for _, o := range operands {
		data = append(data, o.Bytes())
	}
	hash := crypto.Keccak256(data...)
	var h types.Handle
	copy(h[:handleHashLength], hash[:handleHashLength])
	h[handleIndexOffset] = 0xff
	binary.BigEndian.PutUint64(h[handleChainOffset:handleTypeOffset], chainID)
	h[handleTypeOffset] = byte(fheType)
	h[handleVersionIndex] = HandleVersion
	return h
}

// BindingMetadata is the data an encrypted input is bound to: the
// destination contract, the submitter, the ACL contract and the chain. It is
// embedded in the ciphertext list, so it also feeds the handle derivation.
func BindingMetadata(contract, user, acl common.Address, chainID uint64) []byte {
	out := make([]byte, 0, 3*common.AddressLength+32)
	out = append(out, contract.Bytes()...)
	out = append(out, user.Bytes()...)
	out = append(out, acl.Bytes()...)
	chain := make([]byte, 32)
	binary.BigEndian.PutUint64(chain[24:], chainID)
	return append(out, chain...)
}
