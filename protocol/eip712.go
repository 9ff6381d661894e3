package protocol

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/types"
)

const (
	// DecryptionDomainName is the EIP-712 domain of user decryption requests.
	DecryptionDomainName = "Decryption"
	// InputVerificationDomainName is the EIP-712 domain of input proofs.
	InputVerificationDomainName = "InputVerification"
	// DomainVersion is shared by both domains.
	DomainVersion = "1"

	// UserDecryptPrimaryType is the primary type signed by the wallet to
	// authorize a user decryption.
	UserDecryptPrimaryType = "UserDecryptRequestVerification"
	// CiphertextVerificationPrimaryType is the primary type signed by the
	// coprocessors for every verified input.
	CiphertextVerificationPrimaryType = "CiphertextVerification"
)

var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

func domain(name string, chainID uint64, verifier common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              name,
		Version:           DomainVersion,
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(chainID)),
		VerifyingContract: verifier.Hex(),
	}
}

func hexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// UserDecryptTypedData builds the payload a wallet signs to authorize the
// holder of publicKey to decrypt handles of the listed contracts during the
// validity window.
func UserDecryptTypedData(network *config.Network, publicKey []byte,
	contracts []common.Address, window ValidityWindow, extraData []byte,
) apitypes.TypedData {
	addrs := make([]interface{}, len(contracts))
	for i, c := range contracts {
		addrs[i] = c.Hex()
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			UserDecryptPrimaryType: {
				{Name: "publicKey", Type: "bytes"},
				{Name: "contractAddresses", Type: "address[]"},
				{Name: "startTimestamp", Type: "uint256"},
				{Name: "durationDays", Type: "uint256"},
				{Name: "extraData", Type: "bytes"},
			},
		},
		PrimaryType: UserDecryptPrimaryType,
		Domain:      domain(DecryptionDomainName, network.GatewayChainID, network.DecryptionVerifier),
		Message: apitypes.TypedDataMessage{
			"publicKey":         hexBytes(publicKey),
			"contractAddresses": addrs,
			"startTimestamp":    strconv.FormatInt(window.Start, 10),
			"durationDays":      strconv.FormatUint(window.DurationDays, 10),
			"extraData":         hexBytes(extraData),
		},
	}
}

// CiphertextVerificationTypedData builds the payload signed by each
// coprocessor to attest that handles were produced from a well formed input
// for (contract, user) on chainID.
func CiphertextVerificationTypedData(network *config.Network, handles []types.Handle,
	user, contract common.Address, chainID uint64, extraData []byte,
) apitypes.TypedData {
	hs := make([]interface{}, len(handles))
	for i, h := range handles {
		hs[i] = h.Hex()
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			CiphertextVerificationPrimaryType: {
				{Name: "ctHandles", Type: "bytes32[]"},
				{Name: "userAddress", Type: "address"},
				{Name: "contractAddress", Type: "address"},
				{Name: "contractChainId", Type: "uint256"},
				{Name: "extraData", Type: "bytes"},
			},
		},
		PrimaryType: CiphertextVerificationPrimaryType,
		Domain:      domain(InputVerificationDomainName, network.GatewayChainID, network.InputVerification),
		Message: apitypes.TypedDataMessage{
			"ctHandles":       hs,
			"userAddress":     user.Hex(),
			"contractAddress": contract.Hex(),
			"contractChainId": strconv.FormatUint(chainID, 10),
			"extraData":       hexBytes(extraData),
		},
	}
}
