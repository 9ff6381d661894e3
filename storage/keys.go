package storage

import (
	"fmt"
)

// KeySet is a stored FHE key set. The public parts are what the relayer serves
// to clients; the secret part never leaves the relayer.
type KeySet struct {
	ID           string `cbor:"1,keyasint"`
	Class        string `cbor:"2,keyasint"`
	Params       []byte `cbor:"3,keyasint"`
	PublicKey    []byte `cbor:"4,keyasint"`
	SecretKey    []byte `cbor:"5,keyasint"`
	PublicKeyID  string `cbor:"6,keyasint"`
	ParamsID     string `cbor:"7,keyasint"`
	CreatedAt    int64  `cbor:"8,keyasint"`
}

// StoreKeySet stores a key set and makes it the active one.
func (s *Storage) StoreKeySet(ks *KeySet) error {
	if ks == nil || ks.ID == "" {
		return fmt.Errorf("invalid key set")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if err := s.setArtifact(keySetPrefix, []byte(ks.ID), ks); err != nil {
		return fmt.Errorf("store key set: %w", err)
	}
	return s.setArtifact(metadataPrefix, activeKeySetKey, ks.ID)
}

// KeySet returns the key set with the given id.
func (s *Storage) KeySet(id string) (*KeySet, error) {
	ks := &KeySet{}
	if err := s.getArtifact(keySetPrefix, []byte(id), ks); err != nil {
		return nil, err
	}
	return ks, nil
}

// ActiveKeySet returns the key set currently served by the relayer, or
// ErrNotFound if none was stored yet.
func (s *Storage) ActiveKeySet() (*KeySet, error) {
	var id string
	if err := s.getArtifact(metadataPrefix, activeKeySetKey, &id); err != nil {
		return nil, err
	}
	return s.KeySet(id)
}

// ListKeySets returns the ids of every stored key set.
func (s *Storage) ListKeySets() ([]string, error) {
	keys, err := s.listArtifacts(keySetPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = string(k)
	}
	return ids, nil
}

// SetSignerKey stores a hex encoded ECDSA private key under a name.
func (s *Storage) SetSignerKey(name, privHex string) error {
	return s.setArtifact(signerKeyPrefix, []byte(name), privHex)
}

// SignerKey returns the hex encoded ECDSA private key stored under name.
func (s *Storage) SignerKey(name string) (string, error) {
	var key string
	if err := s.getArtifact(signerKeyPrefix, []byte(name), &key); err != nil {
		return "", err
	}
	return key, nil
}
