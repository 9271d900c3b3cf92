package sim

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStation(t *testing.T, id StationID, capacity int, hourly map[string]float64, links []DestinationLink, seed int64) *Station {
	t.Helper()
	st, err := NewStation(id, capacity, hourly, links, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return st
}

func TestStation_Release_FIFOFairness(t *testing.T) {
	// GIVEN a station with bikes docked in order [1, 2, 3]
	st := newTestStation(t, "a", 5, map[string]float64{"09": 10}, nil, 1)
	b1, b2, b3 := NewBike(1), NewBike(2), NewBike(3)
	require.True(t, st.Lease(b1))
	require.True(t, st.Lease(b2))
	require.True(t, st.Lease(b3))

	// WHEN releasing three times
	// THEN the longest-docked bike departs first each time
	assert.Equal(t, b1, st.Release())
	assert.Equal(t, b2, st.Release())
	assert.Equal(t, b3, st.Release())
}

func TestStation_Release_Empty_ReturnsNilWithoutMutation(t *testing.T) {
	st := newTestStation(t, "a", 2, map[string]float64{"09": 10}, nil, 1)
	assert.Nil(t, st.Release())
	assert.Equal(t, 0, st.UsedDocks())
}

func TestStation_Lease_Full_NoStateMutated(t *testing.T) {
	// GIVEN a full station and an in-transit bike
	st := newTestStation(t, "a", 1, map[string]float64{"09": 10}, nil, 1)
	require.True(t, st.Lease(NewBike(1)))
	waiting := NewBike(2)
	waiting.DepartTo("b", "a", 3)
	waiting.RemainingTicks = 0

	// WHEN the lease is attempted
	ok := st.Lease(waiting)

	// THEN it fails and neither the station nor the bike changed
	assert.False(t, ok)
	assert.Equal(t, 1, st.UsedDocks())
	assert.Equal(t, BikeStateInTransit, waiting.State)
	assert.Equal(t, StationID("a"), waiting.Destination)

	// AND the attempt is idempotent: it succeeds once a dock frees
	st.Release()
	assert.True(t, st.Lease(waiting))
	assert.Equal(t, BikeStateDocked, waiting.State)
	assert.Equal(t, StationID("a"), waiting.StationID)
}

func TestStation_Lease_CapacityNeverExceeded(t *testing.T) {
	st := newTestStation(t, "a", 2, map[string]float64{"09": 10}, nil, 1)
	leased := 0
	for i := 0; i < 5; i++ {
		if st.Lease(NewBike(BikeID(i))) {
			leased++
		}
	}
	assert.Equal(t, 2, leased)
	assert.Equal(t, 2, st.UsedDocks())
	assert.Equal(t, 0, st.AvailableDocks())
}

func TestStation_MeanInterval_MissingHour_FallsBackToAllHourMean(t *testing.T) {
	// GIVEN rates for hours "09" (interval 10) and "11" (interval 20)
	st := newTestStation(t, "a", 2, map[string]float64{"09": 10, "11": 20}, nil, 1)

	// WHEN querying the absent hour "10"
	// THEN the arithmetic mean of all present hours is used
	assert.InDelta(t, 15.0, st.MeanInterval("10"), 1e-9)
	assert.InDelta(t, 10.0, st.MeanInterval("09"), 1e-9)
}

func TestStation_DestinationWeights_NormalizedToOne(t *testing.T) {
	// GIVEN raw (unnormalized) destination weights
	links := []DestinationLink{
		{Station: "b", Probability: 2, TravelTicks: 5},
		{Station: "c", Probability: 6, TravelTicks: 8},
	}
	st := newTestStation(t, "a", 2, map[string]float64{"09": 10}, links, 1)

	// THEN probabilities sum to 1 and preserve relative weight
	sum := 0.0
	for _, link := range st.Destinations() {
		sum += link.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.25, st.Destinations()[0].Probability, 1e-9)
	assert.InDelta(t, 0.75, st.Destinations()[1].Probability, 1e-9)
}

func TestStation_Destination_SingleLink_AlwaysChosen(t *testing.T) {
	links := []DestinationLink{{Station: "b", Probability: 1, TravelTicks: 4}}
	st := newTestStation(t, "a", 2, map[string]float64{"09": 10}, links, 1)

	for i := 0; i < 100; i++ {
		dest, travel := st.Destination()
		assert.Equal(t, StationID("b"), dest)
		assert.Equal(t, 4, travel)
	}
}

func TestStation_ShouldDepart_RenewalCountdown(t *testing.T) {
	// GIVEN a station whose RNG stream is mirrored by a replica
	const seed = 17
	st := newTestStation(t, "a", 2, map[string]float64{"09": 10}, nil, seed)
	replica := rand.New(rand.NewSource(seed))

	// WHEN the first departure decision is made
	// THEN it fires immediately (countdown initializes to zero)
	require.True(t, st.ShouldDepart("09"))
	expected := Geometric(replica, 0.1)

	// AND exactly `expected` quiet ticks pass before the next one
	quiet := 0
	for !st.ShouldDepart("09") {
		quiet++
		require.Less(t, quiet, 100000, "departure never fired")
	}
	assert.Equal(t, expected, quiet)
}

func TestStation_ShouldDepart_TracksTicksSinceLastDeparture(t *testing.T) {
	st := newTestStation(t, "a", 2, map[string]float64{"09": 5}, nil, 3)
	require.True(t, st.ShouldDepart("09"))
	ticks := 0
	for !st.ShouldDepart("09") {
		ticks++
	}
	// The diagnostic counter resets on each departure.
	assert.Equal(t, 0, st.TicksSinceLastDeparture)
	assert.Greater(t, ticks, 0)
}

func TestNewStation_ActiveWithoutHourlyData_Rejected(t *testing.T) {
	links := []DestinationLink{{Station: "b", Probability: 1, TravelTicks: 2}}
	_, err := NewStation("a", 2, nil, links, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoHourlyRates))
}

func TestNewStation_InactiveWithoutHourlyData_Allowed(t *testing.T) {
	// A station with no outgoing links never departs, so it needs no
	// rate data.
	st, err := NewStation("a", 2, nil, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.False(t, st.Active())
}

func TestNewStation_InvalidInputs_Rejected(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	hourly := map[string]float64{"09": 10}

	_, err := NewStation("a", -1, hourly, nil, rng)
	assert.Error(t, err, "negative capacity")

	_, err = NewStation("a", 2, map[string]float64{"09": 0}, nil, rng)
	assert.Error(t, err, "nonpositive interval")

	_, err = NewStation("a", 2, hourly, []DestinationLink{{Station: "b", Probability: -1, TravelTicks: 2}}, rng)
	assert.Error(t, err, "negative weight")

	_, err = NewStation("a", 2, hourly, []DestinationLink{{Station: "b", Probability: 0, TravelTicks: 2}}, rng)
	assert.Error(t, err, "zero weight sum")

	_, err = NewStation("a", 2, hourly, []DestinationLink{{Station: "b", Probability: 1, TravelTicks: 0}}, rng)
	assert.Error(t, err, "travel time below one tick")
}
