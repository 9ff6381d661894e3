package protocol

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/crypto/ethereum"
	"github.com/vocdoni/nebula-fhevm/types"
)

var (
	// ErrMalformedInputProof is returned when the proof bytes cannot be
	// decoded.
	ErrMalformedInputProof = errors.New("malformed input proof")
	// ErrInputProofRejected is returned when the proof does not attest the
	// given handles for the given contract, user and chain.
	ErrInputProofRejected = errors.New("input proof rejected")
)

// InputProof is the decoded form of the proof sent alongside the handles of
// an encrypted input. Its wire layout is
//
//	numHandles (1) || numSigners (1) || handles (32*n) || signatures (65*m) || extraData
type InputProof struct {
	Handles    []types.Handle
	Signatures [][]byte
	ExtraData  []byte
}

// EncodeInputProof serializes handles, coprocessor signatures and extra data.
func EncodeInputProof(handles []types.Handle, signatures [][]byte, extraData []byte) ([]byte, error) {
	if len(handles) == 0 || len(handles) > MaxHandlesPerInput {
		return nil, fmt.Errorf("invalid number of handles %d", len(handles))
	}
	if len(signatures) > MaxHandlesPerInput {
		return nil, fmt.Errorf("invalid number of signatures %d", len(signatures))
	}
	out := make([]byte, 0, 2+len(handles)*types.HandleLength+
		len(signatures)*ethereum.SignatureLength+len(extraData))
	out = append(out, byte(len(handles)), byte(len(signatures)))
	for _, h := range handles {
		out = append(out, h[:]...)
	}
	for i, s := range signatures {
		if len(s) != ethereum.SignatureLength {
			return nil, fmt.Errorf("invalid signature %d length %d", i, len(s))
		}
		out = append(out, s...)
	}
	return append(out, extraData...), nil
}

// DecodeInputProof parses the wire form produced by EncodeInputProof.
func DecodeInputProof(data []byte) (*InputProof, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: too short", ErrMalformedInputProof)
	}
	n, m := int(data[0]), int(data[1])
	need := 2 + n*types.HandleLength + m*ethereum.SignatureLength
	if n == 0 || len(data) < need {
		return nil, fmt.Errorf("%w: %d handles and %d signatures do not fit in %d bytes",
			ErrMalformedInputProof, n, m, len(data))
	}
	p := &InputProof{
		Handles:    make([]types.Handle, n),
		Signatures: make([][]byte, m),
	}
	off := 2
	for i := range p.Handles {
		copy(p.Handles[i][:], data[off:off+types.HandleLength])
		off += types.HandleLength
	}
	for i := range p.Signatures {
		p.Signatures[i] = append([]byte(nil), data[off:off+ethereum.SignatureLength]...)
		off += ethereum.SignatureLength
	}
	p.ExtraData = append([]byte(nil), data[off:]...)
	return p, nil
}

// VerifyInputProof checks the proof the way the on-chain input verifier
// does: every signature must recover to a distinct member of signers over the
// CiphertextVerification payload for (contract, user, chainID), and all
// signers must have signed. It returns the attested handles.
func VerifyInputProof(network *config.Network, proof []byte, contract, user common.Address,
	chainID uint64, signers []common.Address,
) ([]types.Handle, error) {
	p, err := DecodeInputProof(proof)
	if err != nil {
		return nil, err
	}
	if len(signers) == 0 {
		return nil, fmt.Errorf("%w: no signers configured", ErrInputProofRejected)
	}
	if len(p.Signatures) != len(signers) {
		return nil, fmt.Errorf("%w: got %d signatures, want %d",
			ErrInputProofRejected, len(p.Signatures), len(signers))
	}
	for _, h := range p.Handles {
		if HandleChainID(h) != chainID {
			return nil, fmt.Errorf("%w: handle %s is bound to chain %d",
				ErrInputProofRejected, h, HandleChainID(h))
		}
	}
	allowed := make(map[common.Address]bool, len(signers))
	for _, s := range signers {
		allowed[s] = true
	}
	td := CiphertextVerificationTypedData(network, p.Handles, user, contract, chainID, p.ExtraData)
	seen := make(map[common.Address]bool, len(signers))
	for i, sig := range p.Signatures {
		addr, err := ethereum.AddrFromTypedDataSignature(td, sig)
		if err != nil {
			return nil, fmt.Errorf("%w: signature %d: %v", ErrInputProofRejected, i, err)
		}
		if !allowed[addr] || seen[addr] {
			return nil, fmt.Errorf("%w: signature %d recovers to unexpected signer %s",
				ErrInputProofRejected, i, addr)
		}
		seen[addr] = true
	}
	return p.Handles, nil
}
