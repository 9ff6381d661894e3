package protocol

import "time"

const (
	// DefaultDurationDays is how long a user decryption authorization stays
	// valid after it is signed.
	DefaultDurationDays = 365
	// SecondsPerDay converts validity days into seconds.
	SecondsPerDay = 24 * 60 * 60
	// MaxDurationDays is the longest window the relayer accepts.
	MaxDurationDays = 365
)

// ValidityWindow is the time span during which a signed user decryption
// request can be served. Start is a unix timestamp in seconds.
type ValidityWindow struct {
	Start        int64
	DurationDays uint64
}

// NewValidityWindow returns a window starting at now lasting
// DefaultDurationDays.
func NewValidityWindow(now time.Time) ValidityWindow {
	return ValidityWindow{Start: now.Unix(), DurationDays: DefaultDurationDays}
}

// End returns the unix timestamp at which the window expires.
func (w ValidityWindow) End() int64 {
	return w.Start + int64(w.DurationDays)*SecondsPerDay
}

// Contains reports whether t falls inside the window.
func (w ValidityWindow) Contains(t time.Time) bool {
	ts := t.Unix()
	return ts >= w.Start && ts < w.End()
}
