// Tracks run-wide counters for final reporting.

package sim

import (
	"fmt"

	"github.com/google/uuid"
)

// Metrics aggregates statistics about the simulation for final
// reporting. Useful for judging dock saturation and unmet demand over
// a run without replaying the full event stream.
type Metrics struct {
	RunID string // unique per orchestrator construction

	Departures    int // bikes released into transit
	Arrivals      int // bikes docked at their destination
	LostDemand    int // departure decisions with no bike available
	DockWaitTicks int // bike-ticks spent waiting at a full destination
}

// NewMetrics creates a Metrics with a fresh run identifier.
func NewMetrics() *Metrics {
	return &Metrics{RunID: uuid.NewString()}
}

// Print displays aggregated metrics at the end of the simulation,
// including the per-station occupancy summary over the stat log.
func (m *Metrics) Print(ticks int, log *StatLog, docked, inTransit int) {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Run ID               : %s\n", m.RunID)
	fmt.Printf("Ticks simulated      : %d\n", ticks)
	fmt.Printf("Departures           : %d\n", m.Departures)
	fmt.Printf("Arrivals             : %d\n", m.Arrivals)
	fmt.Printf("Lost demand          : %d\n", m.LostDemand)
	fmt.Printf("Dock-wait ticks      : %d\n", m.DockWaitTicks)
	fmt.Printf("Fleet at end         : %d docked, %d in transit\n", docked, inTransit)

	summary := OccupancySummary(log)
	if len(summary) == 0 {
		return
	}
	fmt.Println("=== Occupancy (used docks) ===")
	for _, s := range summary {
		fmt.Printf("%-12s mean=%6.2f std=%6.2f min=%d max=%d p95=%.1f\n",
			s.Station, s.MeanUsed, s.StdUsed, s.MinUsed, s.MaxUsed, s.P95Used)
	}
}
