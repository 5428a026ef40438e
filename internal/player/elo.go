package player

import "math"

// Elo rating parameters.
const (
	// KFactor controls how far a single game moves a rating.
	KFactor = 32.0
	// RatingFloor is the lowest rating a player can fall to.
	RatingFloor = 100
)

// ExpectedScore returns the probability of the first player winning
// under the Elo model.
func ExpectedScore(rating, opponent uint32) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(int(opponent)-int(rating))/400.0))
}

// UpdateRating returns the new rating after a game. score is 1 for a
// win, 0.5 for a draw, 0 for a loss. The adjustment truncates toward
// zero and the result never drops below RatingFloor.
func UpdateRating(rating, opponent uint32, score float64) uint32 {
	expected := ExpectedScore(rating, opponent)
	delta := int(KFactor * (score - expected))

	updated := int(rating) + delta
	if updated < RatingFloor {
		updated = RatingFloor
	}
	return uint32(updated)
}
