package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_CountsByType(t *testing.T) {
	// GIVEN an event stream with mixed outcomes
	events := []Event{
		{Tick: 0, Type: EventDepartureLeased, Station: "a", Bike: 1, Target: "b"},
		{Tick: 1, Type: EventLostDemand, Station: "a", Bike: NoBike},
		{Tick: 1, Type: EventLostDemand, Station: "c", Bike: NoBike},
		{Tick: 2, Type: EventArrivalLeased, Station: "b", Bike: 1},
		{Tick: 3, Type: EventWaitingForDock, Station: "b", Bike: 2},
		{Tick: 4, Type: EventLostDemand, Station: "a", Bike: NoBike},
	}

	// WHEN summarized
	s := Summarize(events)

	// THEN counts line up per type and per station
	assert.Equal(t, 1, s.Counts[EventDepartureLeased])
	assert.Equal(t, 3, s.Counts[EventLostDemand])
	assert.Equal(t, 1, s.Counts[EventArrivalLeased])
	assert.Equal(t, 1, s.Counts[EventWaitingForDock])
	assert.Equal(t, 3, s.TotalLostDemand)
	assert.Equal(t, 1, s.TotalDockWaitTicks)
	assert.Equal(t, 2, s.LostDemandByStation["a"])
	assert.Equal(t, 1, s.LostDemandByStation["c"])
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.TotalLostDemand)
	assert.Empty(t, s.LostDemandByStation)
}

func TestEventSummary_LossiestStations_OrderedByCount(t *testing.T) {
	events := []Event{
		{Type: EventLostDemand, Station: "b"},
		{Type: EventLostDemand, Station: "a"},
		{Type: EventLostDemand, Station: "b"},
		{Type: EventLostDemand, Station: "c"},
		{Type: EventLostDemand, Station: "a"},
	}
	s := Summarize(events)
	// Ties (a and b both at 2) break by ID for stable output.
	assert.Equal(t, []StationID{"a", "b", "c"}, s.LossiestStations())
}

func TestMultiSink_FansOut(t *testing.T) {
	c1 := &CollectorSink{}
	c2 := &CollectorSink{}
	sink := MultiSink{c1, c2}

	sink.Record(Event{Tick: 1, Type: EventLostDemand, Station: "a", Bike: NoBike})

	assert.Len(t, c1.Events, 1)
	assert.Len(t, c2.Events, 1)
	assert.Equal(t, c1.Events[0], c2.Events[0])
}
