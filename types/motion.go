package types

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MotionPhase is the lifecycle step of a motion.
type MotionPhase uint8

const (
	// MotionPending: created, voting has not opened yet.
	MotionPending MotionPhase = iota
	// MotionOpen: accepting encrypted ballots.
	MotionOpen
	// MotionClosed: voting ended, tallies not published.
	MotionClosed
	// MotionFinalized: the decrypted snapshot has been published.
	MotionFinalized
)

// String implements fmt.Stringer.
func (p MotionPhase) String() string {
	switch p {
	case MotionPending:
		return "pending"
	case MotionOpen:
		return "open"
	case MotionClosed:
		return "closed"
	case MotionFinalized:
		return "finalized"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Motion is a topic voted on the NebulaVoteHub contract. Ballots are one-hot
// vectors over Choices (or a single choice index), always encrypted.
type Motion struct {
	ID          uint64         `json:"id" cbor:"1,keyasint"`
	Title       string         `json:"title" cbor:"2,keyasint"`
	Description string         `json:"description" cbor:"3,keyasint"`
	Choices     []string       `json:"choices" cbor:"4,keyasint"`
	OpenAt      time.Time      `json:"openAt" cbor:"5,keyasint"`
	CloseAt     time.Time      `json:"closeAt" cbor:"6,keyasint"`
	Finalized   bool           `json:"finalized" cbor:"7,keyasint"`
	Curator     common.Address `json:"curator" cbor:"8,keyasint"`
}

// PhaseAt returns the phase of the motion at t. The close time is inclusive.
func (m *Motion) PhaseAt(t time.Time) MotionPhase {
	switch {
	case m.Finalized:
		return MotionFinalized
	case t.Before(m.OpenAt):
		return MotionPending
	case !t.After(m.CloseAt):
		return MotionOpen
	}
	return MotionClosed
}

// String returns a short human readable description of the motion.
func (m *Motion) String() string {
	return fmt.Sprintf("#%d %q choices=%d open=%s close=%s finalized=%v",
		m.ID, m.Title, len(m.Choices), m.OpenAt.UTC().Format(time.RFC3339),
		m.CloseAt.UTC().Format(time.RFC3339), m.Finalized)
}

// Snapshot is the published result of a motion: the decrypted counts per
// choice plus a reference to how they were obtained.
type Snapshot struct {
	MotionID  uint64    `json:"motionId"`
	Counts    []uint32  `json:"counts"`
	Proof     string    `json:"proof"`
	Timestamp time.Time `json:"timestamp"`
}
