package types

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/nebula-fhevm/util"
)

// HandleLength is the size in bytes of a ciphertext handle.
const HandleLength = 32

// Handle is an opaque reference to an encrypted value. It carries no
// plaintext information; only the relayer and the contract ACL know what it
// points to.
type Handle [HandleLength]byte

// HandleFromHex parses a 0x prefixed (or bare) 32 byte hex string.
func HandleFromHex(s string) (Handle, error) {
	var h Handle
	b, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		return h, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	if len(b) != HandleLength {
		return h, fmt.Errorf("invalid handle length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HandleFromHash converts an on-chain bytes32 value into a Handle.
func HandleFromHash(hash common.Hash) Handle {
	return Handle(hash)
}

// Bytes returns a copy of the handle as a byte slice.
func (h Handle) Bytes() []byte {
	b := make([]byte, HandleLength)
	copy(b, h[:])
	return b
}

// Hash returns the handle as a bytes32 value for contract calls.
func (h Handle) Hash() common.Hash {
	return common.Hash(h)
}

// Hex returns the 0x prefixed lowercase hex encoding.
func (h Handle) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Handle) String() string {
	return h.Hex()
}

// IsZero reports whether the handle is the uninitialized value.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// MarshalText implements encoding.TextMarshaler, so handles can be used as
// JSON map keys.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(data []byte) error {
	parsed, err := HandleFromHex(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Hashes converts a list of handles into bytes32 values, keeping the order.
func Hashes(handles []Handle) [][32]byte {
	out := make([][32]byte, len(handles))
	for i, h := range handles {
		out[i] = h
	}
	return out
}
