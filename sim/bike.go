package sim

// BikeID identifies a bike uniquely within a simulation run.
type BikeID int

// NoBike marks events that carry no bike identifier (e.g. lost demand).
const NoBike BikeID = -1

// BikeState represents the lifecycle state of a bike.
type BikeState string

const (
	BikeStateDocked    BikeState = "DOCKED"
	BikeStateInTransit BikeState = "IN_TRANSIT"
)

// Bike is a minimal finite-state entity. Exactly one of the two states
// holds at any time: Docked (StationID is valid) or InTransit (Origin,
// Destination and RemainingTicks are valid). Bikes are created once at
// fleet distribution and only ever change state afterwards.
type Bike struct {
	ID    BikeID
	State BikeState

	// Valid while docked.
	StationID StationID

	// Valid while in transit.
	Origin         StationID
	Destination    StationID
	RemainingTicks int
}

// NewBike creates a bike awaiting its initial dock assignment.
func NewBike(id BikeID) *Bike {
	return &Bike{ID: id, State: BikeStateInTransit}
}

// Docked reports whether the bike currently occupies a dock.
func (b *Bike) Docked() bool {
	return b.State == BikeStateDocked
}

// DockAt transitions the bike to the docked state at the given station.
// Transit fields are cleared so the sum-type invariant holds.
func (b *Bike) DockAt(id StationID) {
	b.State = BikeStateDocked
	b.StationID = id
	b.Origin = ""
	b.Destination = ""
	b.RemainingTicks = 0
}

// DepartTo transitions the bike to the in-transit state.
func (b *Bike) DepartTo(origin, destination StationID, travelTicks int) {
	b.State = BikeStateInTransit
	b.StationID = ""
	b.Origin = origin
	b.Destination = destination
	b.RemainingTicks = travelTicks
}
