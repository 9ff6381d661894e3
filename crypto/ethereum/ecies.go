package ethereum

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
)

// EncryptTo encrypts msg with ECIES for the holder of the uncompressed
// secp256k1 public key pub.
func EncryptTo(pub, msg []byte) ([]byte, error) {
	pk, err := ethcrypto.UnmarshalPubkey(pub)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(pk), msg, nil, nil)
}

// DecryptWith opens a message produced by EncryptTo.
func DecryptWith(priv *ecdsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return ecies.ImportECDSA(priv).Decrypt(ciphertext, nil, nil)
}
