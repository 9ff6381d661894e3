// Package fhe is the homomorphic encryption library driven by the adapter and
// the development relayer. Values are encrypted with BGV (lattigo) and
// packed into a CBOR ciphertext list bound to caller supplied metadata.
package fhe

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bgv"
)

// ParamsClass2048 is the only public parameter class served by the key
// custody service.
const ParamsClass2048 = "2048"

// plaintextModulus is an NTT friendly prime close to 2^40, large enough to
// hold any uint32 and to accumulate sums of them.
const plaintextModulus = 0x10000048001

var literals = map[string]bgv.ParametersLiteral{
	ParamsClass2048: {
		LogN:             13,
		LogQ:             []int{60, 60},
		LogP:             []int{61},
		PlaintextModulus: plaintextModulus,
	},
}

// Params returns the BGV parameters of the given class.
func Params(class string) (bgv.Parameters, error) {
	lit, ok := literals[class]
	if !ok {
		return bgv.Parameters{}, fmt.Errorf("unknown parameter class %q", class)
	}
	return bgv.NewParametersFromLiteral(lit)
}

// KeySet is a full key pair under a parameter set. Only the relayer holds the
// secret part.
type KeySet struct {
	Params bgv.Parameters
	Secret *rlwe.SecretKey
	Public *rlwe.PublicKey
}

// GenerateKeys creates a fresh key pair for the parameter class.
func GenerateKeys(class string) (*KeySet, error) {
	params, err := Params(class)
	if err != nil {
		return nil, err
	}
	sk, pk := rlwe.NewKeyGenerator(params).GenKeyPairNew()
	return &KeySet{Params: params, Secret: sk, Public: pk}, nil
}

// PublicKeyBytes returns the serialized public key.
func (k *KeySet) PublicKeyBytes() ([]byte, error) {
	return k.Public.MarshalBinary()
}

// PublicParamsBytes returns the serialized public parameters.
func (k *KeySet) PublicParamsBytes() ([]byte, error) {
	return k.Params.MarshalBinary()
}

// SecretKeyBytes returns the serialized secret key.
func (k *KeySet) SecretKeyBytes() ([]byte, error) {
	return k.Secret.MarshalBinary()
}

// LoadKeySet rebuilds a KeySet from its serialized parts.
func LoadKeySet(params, secret, public []byte) (*KeySet, error) {
	p, err := unmarshalParams(params)
	if err != nil {
		return nil, err
	}
	sk := new(rlwe.SecretKey)
	if err := sk.UnmarshalBinary(secret); err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}
	pk, err := unmarshalPublicKey(p, public)
	if err != nil {
		return nil, err
	}
	if sk.Value.Q.N() != p.N() {
		return nil, fmt.Errorf("secret key ring degree %d does not match parameters %d",
			sk.Value.Q.N(), p.N())
	}
	return &KeySet{Params: p, Secret: sk, Public: pk}, nil
}

func unmarshalParams(data []byte) (bgv.Parameters, error) {
	var p bgv.Parameters
	if len(data) == 0 {
		return p, fmt.Errorf("empty public parameters")
	}
	if err := p.UnmarshalBinary(data); err != nil {
		return p, fmt.Errorf("invalid public parameters: %w", err)
	}
	return p, nil
}

func unmarshalPublicKey(params bgv.Parameters, data []byte) (*rlwe.PublicKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty public key")
	}
	pk := new(rlwe.PublicKey)
	if err := pk.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	if pk.Value[0].Q.N() != params.N() || pk.Value[1].Q.N() != params.N() {
		return nil, fmt.Errorf("public key ring degree does not match parameters")
	}
	return pk, nil
}
