package types

import (
	"encoding/hex"
	"fmt"

	"github.com/vocdoni/nebula-fhevm/util"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as opposed to
// the base64 default. A 0x prefix is accepted but not required on decoding.
type HexBytes []byte

// String returns the 0x prefixed hexadecimal representation.
func (b HexBytes) String() string {
	return util.PrefixHex(hex.EncodeToString(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *HexBytes) UnmarshalText(data []byte) error {
	decoded, err := hex.DecodeString(util.TrimHex(string(data)))
	if err != nil {
		return fmt.Errorf("invalid hex bytes: %w", err)
	}
	*b = decoded
	return nil
}
