package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/protocol"
	stg "github.com/vocdoni/nebula-fhevm/storage"
)

// aggregate computes the homomorphic sum of stored handles. The result is
// bound to the same contract as its operands.
// POST /v1/dev/aggregate
func (a *API) aggregate(w http.ResponseWriter, r *http.Request) {
	req := &wire.AggregateRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(req.Handles) == 0 {
		ErrNoHandles.Write(w)
		return
	}
	cts := make([][]byte, len(req.Handles))
	for i, h := range req.Handles {
		ct, err := a.storage.Ciphertext(h)
		if errors.Is(err, stg.ErrNotFound) {
			ErrHandleNotFound.Withf("%s", h).Write(w)
			return
		}
		if err != nil {
			ErrGenericInternalServerError.WithErr(err).Write(w)
			return
		}
		if ct.Contract != req.ContractAddress {
			ErrContractNotAllowed.Withf("handle %s", h).Write(w)
			return
		}
		cts[i] = ct.Ciphertext
	}
	sum, err := a.evaluator.Add(cts...)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not add ciphertexts: %v", err).Write(w)
		return
	}
	handle := protocol.ComputedHandle("add", protocol.FheTypeUint32, a.network.ChainID, req.Handles...)
	if err := a.storage.SetCiphertext(handle, &stg.Ciphertext{
		Contract:   req.ContractAddress,
		KeySetID:   a.keyRecord.ID,
		Ciphertext: sum,
		Inputs:     req.Handles,
	}); err != nil {
		ErrGenericInternalServerError.Withf("could not store ciphertext: %v", err).Write(w)
		return
	}
	log.Debugw("aggregated handles", "contract", req.ContractAddress.Hex(), "operands", len(req.Handles),
		"handle", handle.Hex())
	httpWriteJSON(w, &wire.AggregateResponse{Handle: handle})
}
