package sim

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// The three input tables are produced by an external data-preparation
// step that aggregates historical trip records. The core only consumes
// the pre-aggregated form.

// StationRecord is one row of the station topology table.
type StationRecord struct {
	ID    StationID `yaml:"id"`
	Docks int       `yaml:"docks"`
}

// TransitionRecord is one row of the station-pair transition table.
// ArrivalProbability may be pre-normalized per origin or left as a raw
// weight; the core normalizes either way. TripCount is used as the
// draw weight when probabilities are absent (all zero).
type TransitionRecord struct {
	Origin             StationID `yaml:"origin"`
	Destination        StationID `yaml:"destination"`
	TripCount          int       `yaml:"trip_count"`
	MeanDuration       float64   `yaml:"mean_duration"` // minutes
	ArrivalProbability float64   `yaml:"arrival_probability"`
}

// HourlyRateRecord is one row of the per-station-per-hour timing table.
// Intervals are mean ticks between events during that hour of day.
type HourlyRateRecord struct {
	StationID      StationID `yaml:"station_id"`
	Hour           string    `yaml:"hour"`
	InterDeparture float64   `yaml:"inter_departure"`
	InterArrival   float64   `yaml:"inter_arrival"`
}

// Dataset bundles the three pre-aggregated input tables.
type Dataset struct {
	Stations    []StationRecord
	Transitions []TransitionRecord
	HourlyRates []HourlyRateRecord
}

var hourLabelPattern = regexp.MustCompile(`^([01][0-9]|2[0-3])$`)

// Validate checks the dataset for configuration defects. Defects are
// surfaced here, at load time, never mid-simulation: every
// departure-eligible station (one with at least one outgoing
// transition into the topology) must carry hourly rate data.
func (d *Dataset) Validate() error {
	if len(d.Stations) == 0 {
		return fmt.Errorf("topology has no stations")
	}

	known := make(map[StationID]bool, len(d.Stations))
	for _, s := range d.Stations {
		if s.ID == "" {
			return fmt.Errorf("topology row with empty station id")
		}
		if known[s.ID] {
			return fmt.Errorf("duplicate station %s in topology", s.ID)
		}
		if s.Docks < 0 {
			return fmt.Errorf("station %s: dock capacity must be >= 0, got %d", s.ID, s.Docks)
		}
		known[s.ID] = true
	}

	hasRates := make(map[StationID]bool)
	for _, r := range d.HourlyRates {
		if !hourLabelPattern.MatchString(r.Hour) {
			return fmt.Errorf("station %s: malformed hour label %q", r.StationID, r.Hour)
		}
		if r.InterDeparture <= 0 {
			return fmt.Errorf("station %s hour %s: inter-departure interval must be positive, got %v", r.StationID, r.Hour, r.InterDeparture)
		}
		hasRates[r.StationID] = true
	}

	for _, t := range d.Transitions {
		if t.ArrivalProbability < 0 {
			return fmt.Errorf("transition %s -> %s: negative arrival probability %v", t.Origin, t.Destination, t.ArrivalProbability)
		}
		if t.TripCount < 0 {
			return fmt.Errorf("transition %s -> %s: negative trip count %d", t.Origin, t.Destination, t.TripCount)
		}
		// Dangling origins/destinations are dropped with a warning at
		// construction, not rejected here: trip history routinely
		// references stations retired from the topology.
		if known[t.Origin] && known[t.Destination] && !hasRates[t.Origin] {
			return fmt.Errorf("station %s: %w", t.Origin, ErrNoHourlyRates)
		}
	}

	return nil
}

// === CSV loaders ===

// Expected CSV column headers for each table, matching the
// data-preparation step's exports.
var (
	stationColumns    = []string{"station_id", "docks"}
	transitionColumns = []string{"origin_id", "destination_id", "trip_count", "mean_trip_duration", "arrival_probability"}
	hourlyRateColumns = []string{"station_id", "hour", "inter_departure_time", "inter_arrival_time"}
)

func readTable(path string, columns []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty table", path)
	}
	header := rows[0]
	if len(header) != len(columns) {
		return nil, fmt.Errorf("%s: expected %d columns, got %d", path, len(columns), len(header))
	}
	for i, col := range columns {
		if header[i] != col {
			return nil, fmt.Errorf("%s: column %d is %q, want %q", path, i, header[i], col)
		}
	}
	return rows[1:], nil
}

// LoadStationsCSV reads the station topology table.
func LoadStationsCSV(path string) ([]StationRecord, error) {
	rows, err := readTable(path, stationColumns)
	if err != nil {
		return nil, err
	}
	records := make([]StationRecord, 0, len(rows))
	for i, row := range rows {
		docks, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parsing docks: %w", path, i+1, err)
		}
		records = append(records, StationRecord{ID: StationID(row[0]), Docks: docks})
	}
	return records, nil
}

// LoadTransitionsCSV reads the station-pair transition table.
func LoadTransitionsCSV(path string) ([]TransitionRecord, error) {
	rows, err := readTable(path, transitionColumns)
	if err != nil {
		return nil, err
	}
	records := make([]TransitionRecord, 0, len(rows))
	for i, row := range rows {
		count, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parsing trip count: %w", path, i+1, err)
		}
		duration, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parsing trip duration: %w", path, i+1, err)
		}
		prob, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parsing arrival probability: %w", path, i+1, err)
		}
		records = append(records, TransitionRecord{
			Origin:             StationID(row[0]),
			Destination:        StationID(row[1]),
			TripCount:          count,
			MeanDuration:       duration,
			ArrivalProbability: prob,
		})
	}
	return records, nil
}

// LoadHourlyRatesCSV reads the per-station-per-hour timing table.
func LoadHourlyRatesCSV(path string) ([]HourlyRateRecord, error) {
	rows, err := readTable(path, hourlyRateColumns)
	if err != nil {
		return nil, err
	}
	records := make([]HourlyRateRecord, 0, len(rows))
	for i, row := range rows {
		departure, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parsing inter-departure interval: %w", path, i+1, err)
		}
		arrival, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parsing inter-arrival interval: %w", path, i+1, err)
		}
		records = append(records, HourlyRateRecord{
			StationID:      StationID(row[0]),
			Hour:           row[1],
			InterDeparture: departure,
			InterArrival:   arrival,
		})
	}
	return records, nil
}

// === Scenario files ===

// Scenario is a self-contained YAML document bundling the three input
// tables with run parameters, handy for reproducible experiments and
// test fixtures.
type Scenario struct {
	Seed                int64              `yaml:"seed"`
	Bikes               int                `yaml:"bikes"`
	StartHour           int                `yaml:"start_hour"`
	Ticks               int                `yaml:"ticks"`
	SaturationThreshold float64            `yaml:"saturation_threshold,omitempty"`
	Stations            []StationRecord    `yaml:"stations"`
	Transitions         []TransitionRecord `yaml:"transitions"`
	HourlyRates         []HourlyRateRecord `yaml:"hourly_rates"`
}

// Dataset extracts the input tables from the scenario.
func (sc *Scenario) Dataset() *Dataset {
	return &Dataset{
		Stations:    sc.Stations,
		Transitions: sc.Transitions,
		HourlyRates: sc.HourlyRates,
	}
}

// LoadScenario reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Dataset().Validate(); err != nil {
		return nil, fmt.Errorf("validating scenario: %w", err)
	}
	return &sc, nil
}
