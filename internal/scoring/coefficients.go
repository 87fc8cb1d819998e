// Package scoring computes waitlist priority scores.  The coefficients
// A, B and C are fixed configuration derived from a deterministic seed so
// that every environment ranks identical inputs identically.
package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Reference seed inputs used when no other configuration is supplied.
const (
	DefaultRemote = "https://github.com/bssenoz/DropSpott.git"
	DefaultEpoch  = "1762355373"
	DefaultStart  = "202511040900"
)

// Coefficients are the three positive moduli of the score formula.
type Coefficients struct {
	A int64
	B int64
	C int64
}

// Validate rejects non-positive moduli.
func (c Coefficients) Validate() error {
	if c.A <= 0 || c.B <= 0 || c.C <= 0 {
		return fmt.Errorf("scoring: coefficients must be positive, got A=%d B=%d C=%d", c.A, c.B, c.C)
	}
	return nil
}

// SeedInputs identify the project the seed is derived from.
type SeedInputs struct {
	Remote string
	Epoch  string
	Start  string
}

// DefaultSeedInputs returns the reference inputs.
func DefaultSeedInputs() SeedInputs {
	return SeedInputs{Remote: DefaultRemote, Epoch: DefaultEpoch, Start: DefaultStart}
}

// Seed returns the first 12 hex characters of SHA-256("remote|epoch|start").
func Seed(in SeedInputs) string {
	sum := sha256.Sum256([]byte(in.Remote + "|" + in.Epoch + "|" + in.Start))
	return hex.EncodeToString(sum[:])[:12]
}

// FromSeed derives coefficients from a 12 character hex seed:
// A in [7,11], B in [13,19], C in [3,5].
func FromSeed(seed string) (Coefficients, error) {
	if len(seed) < 6 {
		return Coefficients{}, fmt.Errorf("scoring: seed %q too short", seed)
	}
	var parts [3]int64
	for i := range parts {
		n, err := strconv.ParseInt(seed[i*2:i*2+2], 16, 64)
		if err != nil {
			return Coefficients{}, fmt.Errorf("scoring: seed %q: %w", seed, err)
		}
		parts[i] = n
	}
	return Coefficients{
		A: 7 + parts[0]%5,
		B: 13 + parts[1]%7,
		C: 3 + parts[2]%3,
	}, nil
}

// Derive is Seed followed by FromSeed.
func Derive(in SeedInputs) (string, Coefficients, error) {
	seed := Seed(in)
	c, err := FromSeed(seed)
	return seed, c, err
}
