package sim

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical inputs
// MUST produce bit-for-bit identical event and stat logs.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// SubsystemStation returns the RNG subsystem name for a station.
// Each station draws departures and destinations from its own stream,
// so the order in which stations are visited within a tick cannot
// perturb another station's draw sequence.
func SubsystemStation(id StationID) string {
	return "station_" + string(id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// ForStation returns the RNG stream owned by the given station.
func (p *PartitionedRNG) ForStation(id StationID) *rand.Rand {
	return p.ForSubsystem(SubsystemStation(id))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// Geometric samples the number of Bernoulli trials up to and including the
// first success, with per-trial success probability p. Support is >= 1.
// Uses the inverse-transform method: ceil(ln(1-u) / ln(1-p)).
func Geometric(rng *rand.Rand, p float64) int {
	if p <= 0 {
		panic("Geometric: p must be in (0, 1]")
	}
	if p >= 1 {
		return 1
	}
	u := rng.Float64()
	val := math.Ceil(math.Log(1-u) / math.Log(1-p))
	result := int(val)
	if result < 1 {
		return 1
	}
	return result
}
