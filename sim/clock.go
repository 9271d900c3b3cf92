package sim

import "fmt"

// One tick is one simulated minute.
const TicksPerHour = 60

// HourLabel returns the zero-padded two-digit hour of day for a tick,
// wrapping modulo 24 so multi-day runs reuse each hour's empirical
// rates.
func HourLabel(startHour, tick int) string {
	return fmt.Sprintf("%02d", (startHour+tick/TicksPerHour)%24)
}

// ClockLabel returns the "HH:MM" wall-clock label for a tick.
func ClockLabel(startHour, tick int) string {
	return fmt.Sprintf("%02d:%02d", (startHour+tick/TicksPerHour)%24, tick%TicksPerHour)
}
