package fhevm

import (
	"context"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/protocol"
	"github.com/vocdoni/nebula-fhevm/types"
)

// Encrypted is the outcome of an encryption: one handle per value, in the
// order the values were added, and the proof that validates them on chain.
type Encrypted struct {
	Handles    []types.Handle
	InputProof []byte
}

// EncryptedInput accumulates the values of one input bound to a contract and
// a submitter. It is used once.
type EncryptedInput struct {
	inst     *baseInstance
	contract common.Address
	user     common.Address
	values   []uint32
}

// Add32 appends a 32 bit value.
func (in *EncryptedInput) Add32(v uint32) *EncryptedInput {
	in.values = append(in.values, v)
	return in
}

// AddUint appends v as a 32 bit value, failing with ErrInvalidPlaintextValue
// if it does not fit.
func (in *EncryptedInput) AddUint(v uint64) error {
	if v > math.MaxUint32 {
		return ErrInvalidPlaintextValue.Withf("%d does not fit in 32 bits", v)
	}
	in.Add32(uint32(v))
	return nil
}

// Len returns the number of values added.
func (in *EncryptedInput) Len() int {
	return len(in.values)
}

// Encrypt encrypts the values, has them verified and returns the handles and
// the input proof. The handles returned by the verifier must match the ones
// derived locally from the ciphertext list.
func (in *EncryptedInput) Encrypt(ctx context.Context) (*Encrypted, error) {
	if len(in.values) == 0 {
		return nil, ErrInvalidPlaintextValue.With("no values to encrypt")
	}
	if len(in.values) > protocol.MaxHandlesPerInput {
		return nil, ErrInvalidPlaintextValue.Withf("too many values: %d", len(in.values))
	}
	net := in.inst.network
	binding := protocol.BindingMetadata(in.contract, in.user, net.ACLContract, net.ChainID)
	list, err := in.inst.enc.EncryptList(in.values, binding)
	if err != nil {
		return nil, ErrEncryptionFailed.WithErr(err)
	}
	handles, err := protocol.ComputeHandles(list, len(in.values), protocol.FheTypeUint32,
		net.ACLContract, net.ChainID)
	if err != nil {
		return nil, ErrEncryptionFailed.WithErr(err)
	}

	res, err := in.inst.requestInputProof(ctx, in.contract, in.user, list)
	if err != nil {
		return nil, ErrEncryptionFailed.WithErr(err)
	}
	if len(res.Handles) != len(handles) {
		return nil, ErrEncryptionFailed.Withf("verifier returned %d handles, want %d",
			len(res.Handles), len(handles))
	}
	for i := range handles {
		if res.Handles[i] != handles[i] {
			return nil, ErrEncryptionFailed.Withf("verifier handle %d mismatch", i)
		}
	}
	sigs := make([][]byte, len(res.Signatures))
	for i, s := range res.Signatures {
		sigs[i] = s
	}
	proof, err := protocol.EncodeInputProof(handles, sigs, in.inst.extraData)
	if err != nil {
		return nil, ErrEncryptionFailed.WithErr(err)
	}
	log.Debugw("input encrypted", "contract", in.contract.Hex(), "user", in.user.Hex(),
		"values", len(in.values), "proofSize", len(proof))
	return &Encrypted{Handles: handles, InputProof: proof}, nil
}
