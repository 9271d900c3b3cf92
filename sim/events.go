package sim

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// EventType identifies a simulation event.
type EventType string

const (
	// EventDepartureLeased records a bike released into transit.
	EventDepartureLeased EventType = "DepartureLeased"
	// EventLostDemand records a departure decision with no bike to ride.
	EventLostDemand EventType = "LostDemand"
	// EventArrivalLeased records a bike docking at its destination.
	EventArrivalLeased EventType = "ArrivalLeased"
	// EventWaitingForDock records a bike held at a full destination.
	EventWaitingForDock EventType = "WaitingForDock"

	// Construction-time soft warnings.
	EventDanglingDestination EventType = "DanglingDestination"
	EventStationInactive     EventType = "StationInactive"
)

// Event is one record in the simulation's event stream. Lost demand and
// dock waits are expected, quantifiable outcomes, not errors; they flow
// through the same stream as leases.
type Event struct {
	Tick    int
	Clock   string // "HH:MM" label; empty for construction-time events
	Type    EventType
	Station StationID
	Bike    BikeID    // NoBike when the event carries no bike
	Target  StationID // destination, where applicable
}

// EventSink consumes the event stream. The orchestrator holds no global
// logging state; callers inject whichever sink they need.
type EventSink interface {
	Record(Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// CollectorSink appends every event to an in-memory slice. Used by
// tests and by determinism comparisons between runs.
type CollectorSink struct {
	Events []Event
}

func (c *CollectorSink) Record(e Event) {
	c.Events = append(c.Events, e)
}

// MultiSink fans each event out to every child sink in order.
type MultiSink []EventSink

func (m MultiSink) Record(e Event) {
	for _, sink := range m {
		sink.Record(e)
	}
}

// LogSink forwards events to logrus for CLI runs.
type LogSink struct{}

func (LogSink) Record(e Event) {
	switch e.Type {
	case EventDepartureLeased:
		logrus.Infof("[tick %07d] %s departure: bike %d -> %s", e.Tick, e.Station, e.Bike, e.Target)
	case EventArrivalLeased:
		logrus.Infof("[tick %07d] %s arrival: bike %d docked", e.Tick, e.Station, e.Bike)
	case EventLostDemand:
		logrus.Infof("[tick %07d] %s lost demand: no bike available", e.Tick, e.Station)
	case EventWaitingForDock:
		logrus.Infof("[tick %07d] %s full: bike %d waiting for a dock", e.Tick, e.Station, e.Bike)
	case EventDanglingDestination:
		logrus.Warnf("dropping transition %s -> %s: destination not in topology", e.Station, e.Target)
	case EventStationInactive:
		logrus.Warnf("station %s has no outgoing transitions; it receives arrivals but never departs", e.Station)
	default:
		logrus.Infof("[tick %07d] %s %s", e.Tick, e.Station, e.Type)
	}
}

// EventSummary aggregates an event stream for end-of-run reporting.
type EventSummary struct {
	Counts              map[EventType]int
	LostDemandByStation map[StationID]int
	DockWaitsByStation  map[StationID]int
	TotalLostDemand     int
	TotalDockWaitTicks  int
}

// Summarize computes aggregate statistics over a recorded event stream.
// Safe for empty input (returns zero-value fields).
func Summarize(events []Event) *EventSummary {
	summary := &EventSummary{
		Counts:              make(map[EventType]int),
		LostDemandByStation: make(map[StationID]int),
		DockWaitsByStation:  make(map[StationID]int),
	}
	for _, e := range events {
		summary.Counts[e.Type]++
		switch e.Type {
		case EventLostDemand:
			summary.LostDemandByStation[e.Station]++
			summary.TotalLostDemand++
		case EventWaitingForDock:
			summary.DockWaitsByStation[e.Station]++
			summary.TotalDockWaitTicks++
		}
	}
	return summary
}

// LossiestStations returns station IDs ordered by lost demand,
// highest first, ties broken by ID for stable output.
func (s *EventSummary) LossiestStations() []StationID {
	ids := make([]StationID, 0, len(s.LostDemandByStation))
	for id := range s.LostDemandByStation {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.LostDemandByStation[ids[i]], s.LostDemandByStation[ids[j]]
		if a != b {
			return a > b
		}
		return ids[i] < ids[j]
	})
	return ids
}
