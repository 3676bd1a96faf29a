// Package entropy provides the single deterministic random source of a game.
// The source is seeded once; every consumer draws from an independent sub-stream
// derived from (seed, year, region, purpose), so draw order across goroutines never
// changes results.
package entropy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand/v2"

	"github.com/talgya/famine-sim/internal/world"
)

// ErrExhausted is returned when a sub-stream is drawn past its budget.
var ErrExhausted = errors.New("random stream exhausted")

// StreamBudget is the maximum number of draws from one sub-stream.
const StreamBudget = 4096

// Purpose separates sub-streams that share a year and region.
type Purpose uint64

const (
	PurposeEvents Purpose = iota + 1
	PurposeVariant
)

// Source is the per-game random source.
type Source struct {
	seed int64
}

// NewSource creates a source. A zero seed is replaced by a crypto-random seed.
func NewSource(seed int64) *Source {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return &Source{seed: seed}
}

// Seed returns the effective seed.
func (s *Source) Seed() int64 {
	return s.seed
}

// Fingerprint identifies the seed without revealing it; stored with run history to
// detect reseeding on replay.
func (s *Source) Fingerprint() string {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(s.seed))
	sum := sha256.Sum256(buf[:])
	return hex.EncodeToString(sum[:8])
}

// Stream returns the sub-stream for one region-year and purpose.
func (s *Source) Stream(year int, region world.RegionCode, purpose Purpose) *Stream {
	hi := uint64(s.seed)
	lo := mix(uint64(year)<<16 | uint64(region)<<8 | uint64(purpose))
	return &Stream{rng: mrand.New(mrand.NewPCG(hi, lo))}
}

// Variant picks one of n projection variants. It is drawn once per game.
func (s *Source) Variant(n int) int {
	if n <= 1 {
		return 0
	}
	st := s.Stream(0, 0, PurposeVariant)
	return st.IntN(n)
}

// Stream is a bounded deterministic sequence of draws. Not safe for concurrent use;
// each region worker owns its own stream.
type Stream struct {
	rng   *mrand.Rand
	draws int
	err   error
}

// Float returns a float64 in [0, 1). Past the budget it returns 0 and records ErrExhausted.
func (st *Stream) Float() float64 {
	if !st.take() {
		return 0
	}
	return st.rng.Float64()
}

// IntN returns an int in [0, n).
func (st *Stream) IntN(n int) int {
	if !st.take() || n <= 0 {
		return 0
	}
	return st.rng.IntN(n)
}

// Draws returns the number of values drawn so far.
func (st *Stream) Draws() int {
	return st.draws
}

// Err returns ErrExhausted if the stream was overdrawn.
func (st *Stream) Err() error {
	return st.err
}

func (st *Stream) take() bool {
	if st.draws >= StreamBudget {
		st.err = fmt.Errorf("after %d draws: %w", st.draws, ErrExhausted)
		return false
	}
	st.draws++
	return true
}

// mix is the splitmix64 finalizer; it spreads nearby keys across the PCG state space.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// CryptoSeed generates a seed using crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen but return a fixed seed as a safe default.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
