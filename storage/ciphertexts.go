package storage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/nebula-fhevm/types"
)

// Ciphertext is the stored form of an encrypted value. Contract is the
// contract the value was bound to when it was verified; only users allowed
// on that contract can request its decryption.
type Ciphertext struct {
	Contract   common.Address `cbor:"1,keyasint"`
	KeySetID   string         `cbor:"2,keyasint"`
	Ciphertext []byte         `cbor:"3,keyasint"`
	// Inputs are the handles this value was computed from, empty for
	// values coming from a verified input.
	Inputs []types.Handle `cbor:"4,keyasint,omitempty"`
}

// SetCiphertext stores the ciphertext referenced by handle.
func (s *Storage) SetCiphertext(handle types.Handle, ct *Ciphertext) error {
	return s.setArtifact(ciphertextPrefix, handle[:], ct)
}

// Ciphertext returns the ciphertext referenced by handle or ErrNotFound.
func (s *Storage) Ciphertext(handle types.Handle) (*Ciphertext, error) {
	ct := &Ciphertext{}
	if err := s.getArtifact(ciphertextPrefix, handle[:], ct); err != nil {
		return nil, err
	}
	return ct, nil
}

// CountCiphertexts returns how many ciphertexts are stored.
func (s *Storage) CountCiphertexts() (int, error) {
	keys, err := s.listArtifacts(ciphertextPrefix)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
