package slots

import (
	"math/rand"
	"sync"
	"time"
)

// AvailabilityPolicy decides whether a generated slot is offered at all.
type AvailabilityPolicy interface {
	IsOpen(date time.Time, slotID string) bool
}

// AllOpen offers every slot.
type AllOpen struct{}

// IsOpen always returns true.
func (AllOpen) IsOpen(time.Time, string) bool { return true }

// DefaultOpenRate is the share of slots the demo policy leaves open.
const DefaultOpenRate = 0.7

// RandomPolicy closes slots pseudo-randomly. It is a demonstration stand-in
// and gives no consistency between two fetches of the same date.
type RandomPolicy struct {
	openRate float64
	mu       sync.Mutex
	rng      *rand.Rand
}

// NewRandomPolicy creates a policy that leaves about openRate of slots open.
// A zero seed uses the current time.
func NewRandomPolicy(openRate float64, seed int64) *RandomPolicy {
	if openRate <= 0 || openRate > 1 {
		openRate = DefaultOpenRate
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomPolicy{
		openRate: openRate,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// IsOpen draws the next pseudo-random value.
func (p *RandomPolicy) IsOpen(time.Time, string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < p.openRate
}
