// Package dice provides the randomness abstraction for turn rolls.
package dice

// Sides is the number of faces on the game die.
const Sides = 6

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollD6 rolls a single six-sided die using the given Source.
//
// Precondition: src must be non-nil.
// Postcondition: The return value is in [1, 6].
func RollD6(src Source) int {
	return src.Intn(Sides) + 1
}
