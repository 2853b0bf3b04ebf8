package dice

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// cryptoSource implements Source using crypto/rand.
//
// Invariant: All values produced are uniformly distributed in [0, n)
// for any n > 0.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
// Panics with "dice: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// fixedSource implements Source by replaying a fixed value sequence.
// Intended for deterministic tests.
type fixedSource struct {
	mu   sync.Mutex
	vals []int
	i    int
}

// NewFixedSource returns a Source that yields vals in order, wrapping
// around when exhausted. Values outside [0, n) are clamped by modulo.
//
// Precondition: len(vals) > 0.
func NewFixedSource(vals ...int) Source {
	if len(vals) == 0 {
		panic("dice: NewFixedSource called with no values")
	}
	return &fixedSource{vals: vals}
}

// Intn returns the next fixed value reduced modulo n.
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (f *fixedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.vals[f.i%len(f.vals)]
	f.i++
	return ((v % n) + n) % n
}
