package sim

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// StatRow captures one station's occupancy at one instant of one tick.
// Rows are appended immediately after each station's departure
// decision, so departures within a tick are reflected in that tick's
// rows while arrivals show up starting from the next tick.
type StatRow struct {
	Tick           int
	Clock          string
	Station        StationID
	AvailableDocks int
	UsedDocks      int
}

// StatLog is the append-only per-tick, per-station occupancy log.
// Ordering is tick order, then station iteration order within a tick.
type StatLog struct {
	rows []StatRow
}

// Append adds a row to the log.
func (l *StatLog) Append(r StatRow) {
	l.rows = append(l.rows, r)
}

// Rows returns the recorded rows in append order.
func (l *StatLog) Rows() []StatRow {
	return l.rows
}

// Len returns the number of recorded rows.
func (l *StatLog) Len() int {
	return len(l.rows)
}

// StationOccupancy summarizes one station's dock usage over a run.
type StationOccupancy struct {
	Station  StationID
	MeanUsed float64
	StdUsed  float64
	MinUsed  int
	MaxUsed  int
	P95Used  float64
}

// OccupancySummary computes per-station occupancy statistics over the
// whole log, ordered by station ID.
func OccupancySummary(log *StatLog) []StationOccupancy {
	byStation := make(map[StationID][]float64)
	for _, row := range log.Rows() {
		byStation[row.Station] = append(byStation[row.Station], float64(row.UsedDocks))
	}

	ids := make([]StationID, 0, len(byStation))
	for id := range byStation {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	summaries := make([]StationOccupancy, 0, len(ids))
	for _, id := range ids {
		used := byStation[id]
		sorted := append([]float64(nil), used...)
		sort.Float64s(sorted)
		std := 0.0
		if len(used) > 1 {
			std = stat.StdDev(used, nil)
		}
		summaries = append(summaries, StationOccupancy{
			Station:  id,
			MeanUsed: stat.Mean(used, nil),
			StdUsed:  std,
			MinUsed:  int(sorted[0]),
			MaxUsed:  int(sorted[len(sorted)-1]),
			P95Used:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
		})
	}
	return summaries
}

// CSV column headers for the stat log export.
var statLogColumns = []string{"tick", "clock", "station_id", "available_docks", "used_docks"}

// ExportStatLogCSV writes the stat log to a CSV file in append order.
// The core defines no wire format; this is a convenience for the CLI.
func ExportStatLogCSV(log *StatLog, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating stat log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(statLogColumns); err != nil {
		return fmt.Errorf("writing stat log header: %w", err)
	}
	for _, row := range log.Rows() {
		record := []string{
			strconv.Itoa(row.Tick),
			row.Clock,
			string(row.Station),
			strconv.Itoa(row.AvailableDocks),
			strconv.Itoa(row.UsedDocks),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing stat log row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing stat log: %w", err)
	}
	return nil
}
