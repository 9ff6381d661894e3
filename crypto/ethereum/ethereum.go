// Package ethereum wraps go-ethereum secp256k1 keys to sign plain messages
// and EIP-712 typed data the way wallets do, and to recover the signer of
// those signatures.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vocdoni/nebula-fhevm/util"
)

const (
	// SignatureLength is the size of an ECDSA signature in [R || S || V] form.
	SignatureLength = ethcrypto.SignatureLength
	// HashLength is the size of the digests being signed.
	HashLength = 32

	// walletRecoveryOffset is added to V by wallets (27/28 instead of 0/1).
	walletRecoveryOffset = 27
)

// SignKeys holds a secp256k1 key pair and the chain the account operates on.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
	chainID uint64
}

// NewSignKeys returns an empty SignKeys; call Generate or AddHexKey.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate creates a new random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a hex encoded private key (0x prefix optional).
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// SetChainID sets the chain id reported by ChainID.
func (k *SignKeys) SetChainID(chainID uint64) {
	k.chainID = chainID
}

// ChainID returns the chain the account is configured for.
func (k *SignKeys) ChainID() uint64 {
	return k.chainID
}

// HexString returns the compressed public key and the private key as hex.
func (k *SignKeys) HexString() (string, string) {
	if k.Private.D == nil {
		return "", ""
	}
	pub := hex.EncodeToString(ethcrypto.CompressPubkey(&k.Public))
	priv := hex.EncodeToString(ethcrypto.FromECDSA(&k.Private))
	return pub, priv
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address of the key pair.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed address.
func (k *SignKeys) AddressString() string {
	return k.Address().Hex()
}

// SignEthereum signs a message using the Ethereum signed message prefix
// (EIP-191). The recovery id is returned as 0/1.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(accounts.TextHash(message), &k.Private)
}

// SignTypedData signs EIP-712 typed data, returning the signature with the
// recovery id in wallet form (27/28).
func (k *SignKeys) SignTypedData(_ context.Context, data apitypes.TypedData) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	hash, err := HashTypedData(data)
	if err != nil {
		return nil, err
	}
	sig, err := ethcrypto.Sign(hash, &k.Private)
	if err != nil {
		return nil, err
	}
	sig[64] += walletRecoveryOffset
	return sig, nil
}

// SignHash signs a raw 32 byte digest with the recovery id in wallet form.
func (k *SignKeys) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != HashLength {
		return nil, fmt.Errorf("invalid hash length %d", len(hash))
	}
	sig, err := ethcrypto.Sign(hash, &k.Private)
	if err != nil {
		return nil, err
	}
	sig[64] += walletRecoveryOffset
	return sig, nil
}

// HashTypedData returns the EIP-712 digest of the typed data.
func HashTypedData(data apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("cannot hash typed data: %w", err)
	}
	return hash, nil
}

// AddrFromPublicKey returns the address of a compressed or uncompressed
// public key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	var (
		pk  *ecdsa.PublicKey
		err error
	)
	if len(pub) == 33 {
		pk, err = ethcrypto.DecompressPubkey(pub)
	} else {
		pk, err = ethcrypto.UnmarshalPubkey(pub)
	}
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pk), nil
}

// AddrFromSignature recovers the address that signed message with
// SignEthereum.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	return AddrFromHashSignature(accounts.TextHash(message), signature)
}

// AddrFromTypedDataSignature recovers the address that signed the typed data.
func AddrFromTypedDataSignature(data apitypes.TypedData, signature []byte) (common.Address, error) {
	hash, err := HashTypedData(data)
	if err != nil {
		return common.Address{}, err
	}
	return AddrFromHashSignature(hash, signature)
}

// AddrFromHashSignature recovers the signer of a 32 byte digest. Both 0/1
// and 27/28 recovery ids are accepted.
func AddrFromHashSignature(hash, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= walletRecoveryOffset {
		sig[64] -= walletRecoveryOffset
	}
	pub, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
