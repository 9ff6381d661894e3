package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/vocdoni/nebula-fhevm/types"
)

func motionKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

// SetMotion stores a motion seen on chain, replacing any previous copy.
func (s *Storage) SetMotion(m *types.Motion) error {
	if m == nil {
		return fmt.Errorf("nil motion")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.setArtifact(motionPrefix, motionKey(m.ID), m)
}

// Motion returns the stored motion with id or ErrNotFound.
func (s *Storage) Motion(id uint64) (*types.Motion, error) {
	m := &types.Motion{}
	if err := s.getArtifact(motionPrefix, motionKey(id), m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMotions returns the ids of the stored motions in ascending order.
func (s *Storage) ListMotions() ([]uint64, error) {
	keys, err := s.listArtifacts(motionPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(keys))
	for _, k := range keys {
		if len(k) != 8 {
			continue
		}
		ids = append(ids, binary.BigEndian.Uint64(k))
	}
	return ids, nil
}
