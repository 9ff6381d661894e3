package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/crypto/fhe"
	"github.com/vocdoni/nebula-fhevm/log"
)

// keyURL returns the metadata document pointing to the key material blobs.
// GET /v1/keyurl
func (a *API) keyURL(w http.ResponseWriter, r *http.Request) {
	base := requestBaseURL(r) + wire.KeysEndpoint + "/"
	httpWriteJSON(w, &wire.KeyURLResponse{
		Response: wire.KeyURLInfo{
			FheKeyInfo: []wire.FheKeyInfo{{
				FhePublicKey: wire.KeyBlobRef{
					DataID: a.keyRecord.PublicKeyID,
					URLs:   []string{base + a.keyRecord.PublicKeyID},
				},
			}},
			CRS: map[string]wire.KeyBlobRef{
				fhe.ParamsClass2048: {
					DataID: a.keyRecord.ParamsID,
					URLs:   []string{base + a.keyRecord.ParamsID},
				},
			},
		},
	})
}

// keyBlob serves the public key or the public parameters.
// GET /v1/keys/{dataId}
func (a *API) keyBlob(w http.ResponseWriter, r *http.Request) {
	dataID := chi.URLParam(r, wire.DataIDURLParam)
	switch dataID {
	case a.keyRecord.PublicKeyID:
		httpWriteBinary(w, a.keyRecord.PublicKey)
	case a.keyRecord.ParamsID:
		httpWriteBinary(w, a.keyRecord.Params)
	default:
		log.Debugw("unknown key requested", "dataId", dataID)
		ErrKeyNotFound.Withf("data id %q", dataID).Write(w)
	}
}

// signers returns the relayer signer addresses.
// GET /v1/dev/signers
func (a *API) signers(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &wire.SignersResponse{
		KMS:          a.KMSAddress(),
		Coprocessors: a.CoprocessorAddresses(),
	})
}
