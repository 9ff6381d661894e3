// Package wire holds the relayer HTTP routes and the JSON documents exchanged
// on them. It is shared by the relayer server and its clients.
package wire

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// KeyURLEndpoint returns where the public key and the public parameters
	// can be downloaded from.
	KeyURLEndpoint = "/v1/keyurl"
	// KeysEndpoint serves the key material blobs.
	DataIDURLParam = "dataId"
	KeysEndpoint   = "/v1/keys"
	KeyEndpoint    = KeysEndpoint + "/{" + DataIDURLParam + "}"
	// InputProofEndpoint verifies an encrypted input and returns its handles
	// and the coprocessor signatures.
	InputProofEndpoint = "/v1/input-proof"
	// UserDecryptEndpoint re-encrypts plaintexts for the holder of an
	// ephemeral key, after checking the user signature.
	UserDecryptEndpoint = "/v1/user-decrypt"
	// DevAggregateEndpoint and DevSignersEndpoint are only available on the
	// development relayer. The first computes the homomorphic sum of stored
	// handles, a job done on chain by the coprocessors in a real deployment.
	// The second returns the addresses the relayer signs with.
	DevAggregateEndpoint = "/v1/dev/aggregate"
	DevSignersEndpoint   = "/v1/dev/signers"
)
