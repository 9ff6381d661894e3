package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/crypto/ethereum"
	"github.com/vocdoni/nebula-fhevm/crypto/fhe"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/protocol"
	stg "github.com/vocdoni/nebula-fhevm/storage"
	"github.com/vocdoni/nebula-fhevm/types"
)

// inputProof verifies an encrypted input and attests its handles.
// POST /v1/input-proof
func (a *API) inputProof(w http.ResponseWriter, r *http.Request) {
	req := &wire.InputProofRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	chainID := uint64(req.ContractChainID)
	if chainID != a.network.ChainID {
		ErrInvalidChainID.Withf("got %d, serving %d", chainID, a.network.ChainID).Write(w)
		return
	}
	list, err := fhe.ParseList(req.CiphertextWithInputVerification)
	if err != nil {
		ErrMalformedCiphertext.WithErr(err).Write(w)
		return
	}
	if list.Len() > protocol.MaxHandlesPerInput {
		ErrMalformedCiphertext.Withf("too many values: %d", list.Len()).Write(w)
		return
	}
	binding := protocol.BindingMetadata(req.ContractAddress, req.UserAddress, a.network.ACLContract, chainID)
	if !bytes.Equal(list.Metadata, binding) {
		ErrInputBindingMismatch.Write(w)
		return
	}
	// the ciphertexts must have been produced together for this binding
	// and every value must fit in 32 bits
	values, err := a.decryptor.OpenList(list)
	if errors.Is(err, fhe.ErrBindingMismatch) {
		ErrInputBindingMismatch.WithErr(err).Write(w)
		return
	}
	if err != nil {
		ErrMalformedCiphertext.WithErr(err).Write(w)
		return
	}
	for i, v := range values {
		if v > math.MaxUint32 {
			ErrPlaintextOutOfRange.Withf("value %d", i).Write(w)
			return
		}
	}

	handles, err := protocol.ComputeHandles(req.CiphertextWithInputVerification, list.Len(),
		protocol.FheTypeUint32, a.network.ACLContract, chainID)
	if err != nil {
		ErrMalformedCiphertext.WithErr(err).Write(w)
		return
	}
	for i, h := range handles {
		if err := a.storage.SetCiphertext(h, &stg.Ciphertext{
			Contract:   req.ContractAddress,
			KeySetID:   a.keyRecord.ID,
			Ciphertext: list.Ciphertexts[i],
		}); err != nil {
			ErrGenericInternalServerError.Withf("could not store ciphertext: %v", err).Write(w)
			return
		}
	}

	td := protocol.CiphertextVerificationTypedData(a.network, handles, req.UserAddress,
		req.ContractAddress, chainID, req.ExtraData)
	hash, err := ethereum.HashTypedData(td)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	res := wire.InputProofResult{
		Handles:    handles,
		Signatures: make([]types.HexBytes, len(a.coprocessors)),
	}
	for i, s := range a.coprocessors {
		sig, err := s.SignHash(hash)
		if err != nil {
			ErrGenericInternalServerError.Withf("could not sign input: %v", err).Write(w)
			return
		}
		res.Signatures[i] = sig
	}
	log.Infow("verified input", "contract", req.ContractAddress.Hex(), "user", req.UserAddress.Hex(),
		"handles", len(handles))
	httpWriteJSON(w, &wire.InputProofResponse{Response: res})
}
