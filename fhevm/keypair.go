package fhevm

import (
	"crypto/ecdsa"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/nebula-fhevm/crypto/ethereum"
)

// Keypair is the single use key the decryption service re-encrypts results
// to. It lives only for one decryption session and is never persisted.
type Keypair struct {
	private *ecdsa.PrivateKey
	// PublicKey is the uncompressed secp256k1 public key sent to the service
	// and bound into the signed request.
	PublicKey []byte
}

// GenerateKeypair creates a fresh ephemeral keypair.
func GenerateKeypair() (*Keypair, error) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Keypair{
		private:   priv,
		PublicKey: ethcrypto.FromECDSAPub(&priv.PublicKey),
	}, nil
}

// Decrypt opens a payload encrypted to the keypair.
func (k *Keypair) Decrypt(payload []byte) ([]byte, error) {
	return ethereum.DecryptWith(k.private, payload)
}
