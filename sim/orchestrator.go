package sim

import (
	"fmt"
	"math"
	"sort"
)

// DefaultSaturationThreshold caps a station's occupancy ratio during
// initial fleet distribution, so a handful of stations are not
// front-loaded to capacity.
const DefaultSaturationThreshold = 0.9

// OverprovisionedError aborts construction when the fleet cannot be
// placed under the given capacity and saturation threshold. It is the
// only fatal condition the simulation defines; all runtime contention
// is modeled as events.
type OverprovisionedError struct {
	Bikes     int
	Docks     int
	Threshold float64
}

func (e *OverprovisionedError) Error() string {
	return fmt.Sprintf("cannot place %d bikes across %d docks under saturation threshold %.2f: reduce the fleet or raise capacity",
		e.Bikes, e.Docks, e.Threshold)
}

// Config holds orchestrator construction parameters.
type Config struct {
	// BikeCount is the fixed fleet size. The fleet invariant holds for
	// the rest of the run: docked + in-transit == BikeCount.
	BikeCount int
	// SaturationThreshold for initial distribution; zero means
	// DefaultSaturationThreshold.
	SaturationThreshold float64
	// Seed drives every stochastic draw. Identical seed + inputs
	// reproduce the run bit-for-bit.
	Seed int64
	// Sink receives the event stream; nil means NopSink.
	Sink EventSink
}

// Orchestrator builds stations from the input tables, distributes the
// fleet, owns the set of bikes in transit, and runs the tick loop.
// Single logical thread of control: nothing here is safe for
// concurrent use, and nothing needs to be.
type Orchestrator struct {
	stations map[StationID]*Station
	// order is the fixed deterministic station iteration order (sorted
	// by ID); active is the subset eligible to originate departures.
	order  []StationID
	active map[StationID]bool

	bikes     []*Bike
	inTransit []*Bike

	rng     *PartitionedRNG
	sink    EventSink
	stats   *StatLog
	metrics *Metrics

	bikeCount int
	tick      int
}

// NewOrchestrator validates the dataset, builds the stations, and
// performs the initial fleet distribution. The only fatal outcome is
// *OverprovisionedError; dangling transition references and inactive
// stations are soft warnings on the event sink.
func NewOrchestrator(ds *Dataset, cfg Config) (*Orchestrator, error) {
	if cfg.BikeCount <= 0 {
		return nil, fmt.Errorf("bike count must be positive, got %d", cfg.BikeCount)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("validating dataset: %w", err)
	}

	threshold := cfg.SaturationThreshold
	if threshold == 0 {
		threshold = DefaultSaturationThreshold
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}

	o := &Orchestrator{
		stations:  make(map[StationID]*Station, len(ds.Stations)),
		active:    make(map[StationID]bool),
		rng:       NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		sink:      sink,
		stats:     &StatLog{},
		metrics:   NewMetrics(),
		bikeCount: cfg.BikeCount,
	}

	known := make(map[StationID]bool, len(ds.Stations))
	for _, rec := range ds.Stations {
		known[rec.ID] = true
	}

	// Group transitions by origin, dropping rows that reference
	// stations retired from the topology.
	grouped := make(map[StationID][]TransitionRecord)
	for _, t := range ds.Transitions {
		if !known[t.Origin] || !known[t.Destination] {
			o.sink.Record(Event{Type: EventDanglingDestination, Station: t.Origin, Bike: NoBike, Target: t.Destination})
			continue
		}
		grouped[t.Origin] = append(grouped[t.Origin], t)
	}

	links := make(map[StationID][]DestinationLink, len(grouped))
	for origin, rows := range grouped {
		// Raw-count tables carry no probabilities; when an origin's
		// probability column is all zero, trip counts become the draw
		// weights instead.
		probSum := 0.0
		for _, t := range rows {
			probSum += t.ArrivalProbability
		}
		for _, t := range rows {
			weight := t.ArrivalProbability
			if probSum == 0 {
				weight = float64(t.TripCount)
			}
			travel := int(math.Round(t.MeanDuration))
			if travel < 1 {
				travel = 1
			}
			links[origin] = append(links[origin], DestinationLink{
				Station:     t.Destination,
				Probability: weight,
				TravelTicks: travel,
			})
		}
	}

	hourly := make(map[StationID]map[string]float64)
	for _, r := range ds.HourlyRates {
		if !known[r.StationID] {
			continue
		}
		if hourly[r.StationID] == nil {
			hourly[r.StationID] = make(map[string]float64)
		}
		hourly[r.StationID][r.Hour] = r.InterDeparture
	}

	for _, rec := range ds.Stations {
		st, err := NewStation(rec.ID, rec.Docks, hourly[rec.ID], links[rec.ID], o.rng.ForStation(rec.ID))
		if err != nil {
			return nil, err
		}
		o.stations[rec.ID] = st
		o.order = append(o.order, rec.ID)
		if st.Active() {
			o.active[rec.ID] = true
		} else {
			// Kept deliberately asymmetric: the station holds bikes
			// and receives arrivals but never originates a departure.
			o.sink.Record(Event{Type: EventStationInactive, Station: rec.ID, Bike: NoBike})
		}
	}
	sort.Slice(o.order, func(i, j int) bool { return o.order[i] < o.order[j] })

	if err := o.distributeFleet(threshold); err != nil {
		return nil, err
	}
	return o, nil
}

// distributeFleet assigns bikes to stations round-robin, skipping any
// station whose occupancy ratio already exceeds the saturation
// threshold. A full cycle with no eligible station aborts construction.
func (o *Orchestrator) distributeFleet(threshold float64) error {
	totalDocks := 0
	for _, id := range o.order {
		totalDocks += o.stations[id].Capacity
	}

	cursor := 0
	for i := 0; i < o.bikeCount; i++ {
		start := cursor
		for {
			st := o.stations[o.order[cursor]]
			if st.Occupancy() <= threshold && st.AvailableDocks() > 0 {
				break
			}
			cursor = (cursor + 1) % len(o.order)
			if cursor == start {
				return &OverprovisionedError{Bikes: o.bikeCount, Docks: totalDocks, Threshold: threshold}
			}
		}
		b := NewBike(BikeID(i))
		o.stations[o.order[cursor]].Lease(b)
		o.bikes = append(o.bikes, b)
		cursor = (cursor + 1) % len(o.order)
	}
	return nil
}

// Run advances the simulation by numTicks ticks (one tick = one
// simulated minute) starting the clock at startHour. Run is resumable:
// a second call continues from the tick after the previous one. Once
// construction has succeeded no runtime operation can fail, so the
// only errors are parameter defects.
func (o *Orchestrator) Run(startHour, numTicks int) error {
	if startHour < 0 || startHour > 23 {
		return fmt.Errorf("start hour must be in [0, 23], got %d", startHour)
	}
	if numTicks <= 0 {
		return fmt.Errorf("tick count must be positive, got %d", numTicks)
	}

	for i := 0; i < numTicks; i++ {
		t := o.tick
		hour := HourLabel(startHour, t)
		clock := ClockLabel(startHour, t)

		// Departure phase, interleaved with the statistics phase: each
		// station's stat row is appended immediately after its
		// departure decision, so departures within this tick are
		// already reflected while arrivals land in the next tick's
		// rows. Inactive stations get an occupancy row without a
		// decision.
		for _, id := range o.order {
			st := o.stations[id]
			if o.active[id] && st.ShouldDepart(hour) {
				dest, travel := st.Destination()
				if b := st.Release(); b != nil {
					b.DepartTo(st.ID, dest, travel)
					o.inTransit = append(o.inTransit, b)
					o.metrics.Departures++
					o.sink.Record(Event{Tick: t, Clock: clock, Type: EventDepartureLeased, Station: st.ID, Bike: b.ID, Target: dest})
				} else {
					o.metrics.LostDemand++
					o.sink.Record(Event{Tick: t, Clock: clock, Type: EventLostDemand, Station: st.ID, Bike: NoBike, Target: dest})
				}
			}
			o.stats.Append(StatRow{Tick: t, Clock: clock, Station: st.ID, AvailableDocks: st.AvailableDocks(), UsedDocks: st.UsedDocks()})
		}

		// Arrival phase, in insertion order. Builds the next in-transit
		// set instead of removing mid-iteration.
		still := make([]*Bike, 0, len(o.inTransit))
		for _, b := range o.inTransit {
			b.RemainingTicks--
			if b.RemainingTicks > 0 {
				still = append(still, b)
				continue
			}
			dest := o.stations[b.Destination]
			if dest.Lease(b) {
				o.metrics.Arrivals++
				o.sink.Record(Event{Tick: t, Clock: clock, Type: EventArrivalLeased, Station: dest.ID, Bike: b.ID})
			} else {
				// The bike waits at the destination's door and retries
				// every tick until a dock frees.
				b.RemainingTicks = 0
				still = append(still, b)
				o.metrics.DockWaitTicks++
				o.sink.Record(Event{Tick: t, Clock: clock, Type: EventWaitingForDock, Station: dest.ID, Bike: b.ID})
			}
		}
		o.inTransit = still

		o.tick++
	}
	return nil
}

// Station returns the station with the given ID, or nil.
func (o *Orchestrator) Station(id StationID) *Station {
	return o.stations[id]
}

// StationIDs returns the fixed station iteration order.
func (o *Orchestrator) StationIDs() []StationID {
	return o.order
}

// BikeCount returns the fixed fleet size.
func (o *Orchestrator) BikeCount() int {
	return o.bikeCount
}

// DockedCount returns the number of bikes currently occupying docks,
// summed over every station.
func (o *Orchestrator) DockedCount() int {
	total := 0
	for _, id := range o.order {
		total += o.stations[id].UsedDocks()
	}
	return total
}

// InTransitCount returns the number of bikes currently riding or
// waiting at a full destination.
func (o *Orchestrator) InTransitCount() int {
	return len(o.inTransit)
}

// Tick returns the number of ticks simulated so far.
func (o *Orchestrator) Tick() int {
	return o.tick
}

// Stats returns the append-only occupancy log.
func (o *Orchestrator) Stats() *StatLog {
	return o.stats
}

// Metrics returns the run-wide counters.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}
