package util

// Clock supplies wall-clock seconds. Managers take a Clock so that
// expiry and rate-limit behavior is testable with a fake time source.
type Clock interface {
	Now() uint64
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current Unix time in seconds.
func (SystemClock) Now() uint64 {
	return CurrentTimestamp()
}

// IDSource mints unique identifiers for games, players and sessions.
type IDSource interface {
	NewID() string
	NewShortID() string
}

// RandomIDs is the production IDSource backed by crypto/rand.
type RandomIDs struct{}

// NewID returns a fresh 32-character hex id.
func (RandomIDs) NewID() string {
	return GenerateID()
}

// NewShortID returns a fresh 8-character hex id.
func (RandomIDs) NewShortID() string {
	return GenerateShortID()
}
