package fhe

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bgv"
)

// ListVersion is the current ciphertext list envelope version.
const ListVersion = 1

// seedSlots is the number of slots, after the value slot, that carry the
// list seed in every ciphertext of a list.
const seedSlots = 8

var (
	// ErrMalformedList is returned when a ciphertext list cannot be decoded.
	ErrMalformedList = errors.New("malformed ciphertext list")
	// ErrBindingMismatch is returned when the ciphertexts of a list were not
	// produced together for the list metadata.
	ErrBindingMismatch = errors.New("ciphertext list not bound to its metadata")
)

// CiphertextList is the compact list produced by an Encryptor: one
// ciphertext per value plus the metadata the list is bound to.
//
// Every ciphertext encrypts the same random seed next to its value, and
// Proof is keccak256(Metadata || seed). Only the author of the list knows the
// seed, so the proof cannot be recomputed for other metadata and ciphertexts
// cannot be moved into a list with another seed.
type CiphertextList struct {
	Version     uint8    `cbor:"1,keyasint"`
	Metadata    []byte   `cbor:"2,keyasint"`
	Ciphertexts [][]byte `cbor:"3,keyasint"`
	Proof       []byte   `cbor:"4,keyasint"`
}

// Len returns the number of values in the list.
func (l *CiphertextList) Len() int {
	return len(l.Ciphertexts)
}

// Marshal encodes the list with the canonical CBOR encoding, so equal lists
// always produce the same bytes.
func (l *CiphertextList) Marshal() ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(l)
}

// ParseList decodes a list produced by Encryptor.EncryptList.
func ParseList(data []byte) (*CiphertextList, error) {
	l := &CiphertextList{}
	if err := cbor.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedList, err)
	}
	if l.Version != ListVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedList, l.Version)
	}
	if len(l.Ciphertexts) == 0 {
		return nil, fmt.Errorf("%w: no ciphertexts", ErrMalformedList)
	}
	return l, nil
}

// Encryptor encrypts values under a public key.
type Encryptor struct {
	params  bgv.Parameters
	encoder *bgv.Encoder
	enc     *rlwe.Encryptor
}

// NewEncryptor validates the serialized key material and returns an
// Encryptor ready to use.
func NewEncryptor(publicKey, publicParams []byte) (*Encryptor, error) {
	params, err := unmarshalParams(publicParams)
	if err != nil {
		return nil, err
	}
	pk, err := unmarshalPublicKey(params, publicKey)
	if err != nil {
		return nil, err
	}
	return &Encryptor{
		params:  params,
		encoder: bgv.NewEncoder(params),
		enc:     rlwe.NewEncryptor(params, pk),
	}, nil
}

// EncryptUint32 encrypts a single value and returns the serialized
// ciphertext.
func (e *Encryptor) EncryptUint32(v uint32) ([]byte, error) {
	return e.encrypt(v, nil)
}

func (e *Encryptor) encrypt(v uint32, seed []uint64) ([]byte, error) {
	pt := bgv.NewPlaintext(e.params, e.params.MaxLevel())
	slots := make([]uint64, e.params.N())
	slots[0] = uint64(v)
	copy(slots[1:], seed)
	if err := e.encoder.Encode(slots, pt); err != nil {
		return nil, fmt.Errorf("cannot encode value: %w", err)
	}
	ct, err := e.enc.EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("cannot encrypt value: %w", err)
	}
	return ct.MarshalBinary()
}

// EncryptList encrypts every value, keeping the order, and packs the result
// with metadata into a ciphertext list.
func (e *Encryptor) EncryptList(values []uint32, metadata []byte) ([]byte, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no values to encrypt")
	}
	seed, err := newSeed()
	if err != nil {
		return nil, err
	}
	l := &CiphertextList{
		Version:     ListVersion,
		Metadata:    metadata,
		Ciphertexts: make([][]byte, len(values)),
		Proof:       bindingProof(metadata, seed),
	}
	for i, v := range values {
		ct, err := e.encrypt(v, seed)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		l.Ciphertexts[i] = ct
	}
	return l.Marshal()
}

// Decryptor recovers plaintext values with the secret key.
type Decryptor struct {
	params  bgv.Parameters
	encoder *bgv.Encoder
	dec     *rlwe.Decryptor
}

// NewDecryptor returns a Decryptor for the key set.
func NewDecryptor(keys *KeySet) *Decryptor {
	return &Decryptor{
		params:  keys.Params,
		encoder: bgv.NewEncoder(keys.Params),
		dec:     rlwe.NewDecryptor(keys.Params, keys.Secret),
	}
}

// Decrypt decrypts a serialized ciphertext and returns the raw slot value,
// reduced modulo the plaintext modulus.
func (d *Decryptor) Decrypt(data []byte) (uint64, error) {
	slots, err := d.decryptSlots(data)
	if err != nil {
		return 0, err
	}
	return slots[0], nil
}

// OpenList decrypts every value of the list after checking that all the
// ciphertexts carry the same seed and that the list proof matches the seed
// and the metadata. It returns ErrBindingMismatch otherwise.
func (d *Decryptor) OpenList(l *CiphertextList) ([]uint64, error) {
	values := make([]uint64, len(l.Ciphertexts))
	var seed []uint64
	for i, data := range l.Ciphertexts {
		slots, err := d.decryptSlots(data)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		s := slots[1 : 1+seedSlots]
		if seed == nil {
			seed = s
		} else if !slices.Equal(seed, s) {
			return nil, fmt.Errorf("%w: value %d has a foreign seed", ErrBindingMismatch, i)
		}
		values[i] = slots[0]
	}
	if !bytes.Equal(l.Proof, bindingProof(l.Metadata, seed)) {
		return nil, ErrBindingMismatch
	}
	return values, nil
}

func (d *Decryptor) decryptSlots(data []byte) ([]uint64, error) {
	ct, err := unmarshalCiphertext(data)
	if err != nil {
		return nil, err
	}
	pt := d.dec.DecryptNew(ct)
	slots := make([]uint64, d.params.N())
	if err := d.encoder.Decode(pt, slots); err != nil {
		return nil, fmt.Errorf("cannot decode plaintext: %w", err)
	}
	return slots, nil
}

// DecryptUint32 decrypts a serialized ciphertext. The result wraps around
// 2^32 like unsigned 32 bit arithmetic.
func (d *Decryptor) DecryptUint32(data []byte) (uint32, error) {
	v, err := d.Decrypt(data)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// Evaluator runs homomorphic operations that only need the public
// parameters.
type Evaluator struct {
	eval *bgv.Evaluator
}

// NewEvaluator returns an Evaluator for the parameters.
func NewEvaluator(params bgv.Parameters) *Evaluator {
	return &Evaluator{eval: bgv.NewEvaluator(params, nil)}
}

// Add returns the serialized homomorphic sum of the serialized ciphertexts.
func (e *Evaluator) Add(cts ...[]byte) ([]byte, error) {
	if len(cts) == 0 {
		return nil, fmt.Errorf("nothing to add")
	}
	acc, err := unmarshalCiphertext(cts[0])
	if err != nil {
		return nil, err
	}
	for i, data := range cts[1:] {
		ct, err := unmarshalCiphertext(data)
		if err != nil {
			return nil, fmt.Errorf("operand %d: %w", i+1, err)
		}
		if acc, err = e.eval.AddNew(acc, ct); err != nil {
			return nil, fmt.Errorf("cannot add operand %d: %w", i+1, err)
		}
	}
	return acc.MarshalBinary()
}

func newSeed() ([]uint64, error) {
	var buf [4 * seedSlots]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("cannot read seed: %w", err)
	}
	seed := make([]uint64, seedSlots)
	for i := range seed {
		seed[i] = uint64(binary.BigEndian.Uint32(buf[4*i:]))
	}
	return seed, nil
}

func bindingProof(metadata []byte, seed []uint64) []byte {
	buf := make([]byte, 0, len(metadata)+4*len(seed))
	buf = append(buf, metadata...)
	for _, s := range seed {
		buf = binary.BigEndian.AppendUint32(buf, uint32(s))
	}
	return crypto.Keccak256(buf)
}

func unmarshalCiphertext(data []byte) (*rlwe.Ciphertext, error) {
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("invalid ciphertext: %w", err)
	}
	return ct, nil
}
