package sim

import (
	"errors"
	"fmt"
	"math/rand"
)

// StationID is the stable identifier of a docking station.
type StationID string

// ErrNoHourlyRates marks a departure-eligible station configured with no
// hourly rate data at all. This is a configuration defect surfaced at
// load time; it is never raised mid-simulation.
var ErrNoHourlyRates = errors.New("station has no hourly rate data")

// DestinationLink is one outgoing edge in a station's destination
// distribution: a candidate destination, its normalized draw
// probability, and the mean travel time in ticks.
type DestinationLink struct {
	Station     StationID
	Probability float64
	TravelTicks int
}

// Station owns a bounded FIFO queue of docked bikes, a per-hour mean
// inter-departure interval table, and a normalized destination
// distribution. Capacity is fixed at construction; len(docked) <=
// capacity holds at all times.
type Station struct {
	ID       StationID
	Capacity int

	docked *DockQueue

	// Renewal process state for the stochastic departure decision.
	ticksUntilNextDeparture int
	// TicksSinceLastDeparture is a diagnostic counter only; nothing in
	// the tick loop reads it back.
	TicksSinceLastDeparture int

	hourlyMeanInterval map[string]float64
	fallbackInterval   float64

	destinations []DestinationLink

	rng *rand.Rand
}

// NewStation builds a station from its topology capacity, hourly mean
// inter-departure intervals (ticks, keyed by two-digit hour label), and
// raw destination weights. Weights are normalized to sum to 1; a
// station with outgoing links but no hourly data is rejected with
// ErrNoHourlyRates.
func NewStation(id StationID, capacity int, hourly map[string]float64, links []DestinationLink, rng *rand.Rand) (*Station, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("station %s: capacity must be >= 0, got %d", id, capacity)
	}
	if len(links) > 0 && len(hourly) == 0 {
		return nil, fmt.Errorf("station %s: %w", id, ErrNoHourlyRates)
	}

	var fallback float64
	for hour, interval := range hourly {
		if interval <= 0 {
			return nil, fmt.Errorf("station %s: mean interval for hour %q must be positive, got %v", id, hour, interval)
		}
		fallback += interval
	}
	if len(hourly) > 0 {
		fallback /= float64(len(hourly))
	}

	normalized, err := normalizeLinks(id, links)
	if err != nil {
		return nil, err
	}

	return &Station{
		ID:                 id,
		Capacity:           capacity,
		docked:             &DockQueue{},
		hourlyMeanInterval: hourly,
		fallbackInterval:   fallback,
		destinations:       normalized,
		rng:                rng,
	}, nil
}

// normalizeLinks scales raw destination weights so they sum to 1,
// preserving input order.
func normalizeLinks(id StationID, links []DestinationLink) ([]DestinationLink, error) {
	if len(links) == 0 {
		return nil, nil
	}
	var sum float64
	for _, link := range links {
		if link.Probability < 0 {
			return nil, fmt.Errorf("station %s: negative weight %v for destination %s", id, link.Probability, link.Station)
		}
		if link.TravelTicks < 1 {
			return nil, fmt.Errorf("station %s: travel time to %s must be >= 1 tick, got %d", id, link.Station, link.TravelTicks)
		}
		sum += link.Probability
	}
	if sum <= 0 {
		return nil, fmt.Errorf("station %s: destination weights sum to zero", id)
	}
	normalized := make([]DestinationLink, len(links))
	for i, link := range links {
		link.Probability /= sum
		normalized[i] = link
	}
	return normalized, nil
}

// Lease assigns the bike to an available dock. It returns false, with
// no state mutated, when every dock is occupied; the caller keeps the
// bike in transit and may retry on a later tick.
func (s *Station) Lease(b *Bike) bool {
	if s.docked.Len() >= s.Capacity {
		return false
	}
	b.DockAt(s.ID)
	s.docked.Enqueue(b)
	return true
}

// Release pops the oldest-docked bike, freeing its dock. Returns nil,
// with no state mutated, when no bike is docked. The caller is
// responsible for the released bike's transit state.
func (s *Station) Release() *Bike {
	return s.docked.Dequeue()
}

// ShouldDepart implements a discretized renewal process. When the
// countdown has expired it reports a departure and draws the interval
// to the next one from a geometric distribution with p = 1/mean for
// the given hour; otherwise it decrements the countdown. Memoryless,
// with average inter-departure time equal to the empirical mean.
func (s *Station) ShouldDepart(hour string) bool {
	if s.ticksUntilNextDeparture == 0 {
		p := 1 / s.MeanInterval(hour)
		if p > 1 {
			p = 1
		}
		s.ticksUntilNextDeparture = Geometric(s.rng, p)
		s.TicksSinceLastDeparture = 0
		return true
	}
	s.ticksUntilNextDeparture--
	s.TicksSinceLastDeparture++
	return false
}

// MeanInterval returns the mean inter-departure interval for the given
// hour label, falling back to the arithmetic mean over all hours with
// data when the hour is absent.
func (s *Station) MeanInterval(hour string) float64 {
	if interval, ok := s.hourlyMeanInterval[hour]; ok {
		return interval
	}
	return s.fallbackInterval
}

// Destination draws one destination from the normalized distribution
// and returns it with its mean travel time in ticks. Precondition: the
// station is active (has at least one outgoing link).
func (s *Station) Destination() (StationID, int) {
	u := s.rng.Float64()
	acc := 0.0
	for _, link := range s.destinations {
		acc += link.Probability
		if u < acc {
			return link.Station, link.TravelTicks
		}
	}
	// Float round-off can leave acc marginally below 1.
	last := s.destinations[len(s.destinations)-1]
	return last.Station, last.TravelTicks
}

// Active reports whether the station can originate departures.
// Stations with no outgoing links still hold bikes and receive
// arrivals; they are only excluded from the departure phase.
func (s *Station) Active() bool {
	return len(s.destinations) > 0
}

// Destinations returns the normalized destination distribution.
func (s *Station) Destinations() []DestinationLink {
	return s.destinations
}

// UsedDocks returns the number of occupied docks.
func (s *Station) UsedDocks() int {
	return s.docked.Len()
}

// AvailableDocks returns the number of free docks.
func (s *Station) AvailableDocks() int {
	return s.Capacity - s.docked.Len()
}

// Occupancy returns the occupied fraction of the station's docks.
// A zero-capacity station counts as fully saturated.
func (s *Station) Occupancy() float64 {
	if s.Capacity == 0 {
		return 1
	}
	return float64(s.docked.Len()) / float64(s.Capacity)
}
