package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/crypto/ethereum"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/protocol"
	stg "github.com/vocdoni/nebula-fhevm/storage"
)

// userDecrypt re-encrypts the requested plaintexts for the ephemeral key of
// the request, after checking the user authorization.
// POST /v1/user-decrypt
func (a *API) userDecrypt(w http.ResponseWriter, r *http.Request) {
	req := &wire.UserDecryptRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(req.HandleContractPairs) == 0 {
		ErrNoHandles.Write(w)
		return
	}
	chainID, err := strconv.ParseUint(req.ContractsChainID, 10, 64)
	if err != nil || chainID != a.network.ChainID {
		ErrInvalidChainID.Withf("%q", req.ContractsChainID).Write(w)
		return
	}
	window, err := parseValidity(req.RequestValidity)
	if err != nil {
		ErrInvalidValidityWindow.WithErr(err).Write(w)
		return
	}
	if !window.Contains(a.now()) {
		ErrRequestExpired.Write(w)
		return
	}
	if len(req.ContractAddresses) == 0 {
		ErrMalformedBody.With("no contract addresses").Write(w)
		return
	}

	td := protocol.UserDecryptTypedData(a.network, req.PublicKey, req.ContractAddresses, window, req.ExtraData)
	signer, err := ethereum.AddrFromTypedDataSignature(td, req.Signature)
	if err != nil {
		ErrInvalidSignature.WithErr(err).Write(w)
		return
	}
	if signer != req.UserAddress {
		ErrInvalidSignature.Withf("signed by %s, not by %s", signer.Hex(), req.UserAddress.Hex()).Write(w)
		return
	}

	allowed := make(map[common.Address]bool, len(req.ContractAddresses))
	for _, c := range req.ContractAddresses {
		allowed[c] = true
	}
	values := make(wire.DecryptedValues, len(req.HandleContractPairs))
	for _, pair := range req.HandleContractPairs {
		if !allowed[pair.ContractAddress] {
			ErrContractNotAllowed.Withf("%s not in the signed contract list", pair.ContractAddress.Hex()).Write(w)
			return
		}
		ct, err := a.storage.Ciphertext(pair.Handle)
		if errors.Is(err, stg.ErrNotFound) {
			ErrHandleNotFound.Withf("%s", pair.Handle).Write(w)
			return
		}
		if err != nil {
			ErrGenericInternalServerError.WithErr(err).Write(w)
			return
		}
		if ct.Contract != pair.ContractAddress {
			ErrContractNotAllowed.Withf("handle %s", pair.Handle).Write(w)
			return
		}
		v, err := a.decryptor.DecryptUint32(ct.Ciphertext)
		if err != nil {
			ErrDecryptionFailed.Withf("handle %s: %v", pair.Handle, err).Write(w)
			return
		}
		values[pair.Handle] = uint64(v)
	}

	plain, err := json.Marshal(values)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	payload, err := ethereum.EncryptTo(req.PublicKey, plain)
	if err != nil {
		ErrMalformedBody.Withf("invalid public key: %v", err).Write(w)
		return
	}
	sig, err := a.kms.SignEthereum(payload)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	log.Infow("user decryption served", "user", req.UserAddress.Hex(), "handles", len(values))
	httpWriteJSON(w, &wire.UserDecryptResponse{
		Response: []wire.UserDecryptShare{{Payload: payload, Signature: sig}},
	})
}

func parseValidity(v wire.RequestValidity) (protocol.ValidityWindow, error) {
	start, err := strconv.ParseInt(v.StartTimestamp, 10, 64)
	if err != nil {
		return protocol.ValidityWindow{}, err
	}
	days, err := strconv.ParseUint(v.DurationDays, 10, 64)
	if err != nil {
		return protocol.ValidityWindow{}, err
	}
	if days == 0 || days > protocol.MaxDurationDays {
		return protocol.ValidityWindow{}, errors.New("duration out of range")
	}
	return protocol.ValidityWindow{Start: start, DurationDays: days}, nil
}
