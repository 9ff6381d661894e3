package fhevm

import "github.com/vocdoni/nebula-fhevm/types"

// DecryptionResult maps handles to their plaintext values.
type DecryptionResult map[types.Handle]uint64

// Project returns the values of handles in the same order. A handle without
// value reads as zero; use ProjectStrict to detect them.
func (r DecryptionResult) Project(handles []types.Handle) []uint64 {
	out := make([]uint64, len(handles))
	for i, h := range handles {
		out[i] = r[h]
	}
	return out
}

// ProjectStrict is like Project but fails with ErrMissingResult if any
// handle has no value.
func (r DecryptionResult) ProjectStrict(handles []types.Handle) ([]uint64, error) {
	out := make([]uint64, len(handles))
	for i, h := range handles {
		v, ok := r[h]
		if !ok {
			return nil, ErrMissingResult.Withf("handle %s at position %d", h, i)
		}
		out[i] = v
	}
	return out, nil
}
