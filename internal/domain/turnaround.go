package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// InvalidTurnaround marks a turnaround where the send precedes the add time.
const InvalidTurnaround = "Invalid (negative TAT)"

// Turnaround is the elapsed time between a round being added and its invitation being sent.
type Turnaround struct {
	Hours    float64
	Readable string
	Valid    bool
}

func ComputeTurnaround(addedOn, sentAt time.Time) Turnaround {
	d := sentAt.Sub(addedOn)
	if d < 0 {
		return Turnaround{Readable: InvalidTurnaround}
	}
	return Turnaround{
		Hours:    math.Round(d.Hours()*100) / 100,
		Readable: FormatTurnaround(d),
		Valid:    true,
	}
}

// FormatTurnaround renders d as "1d 2h 3m". Days are omitted when zero, hours
// are omitted when both days and hours are zero, minutes are always shown.
func FormatTurnaround(d time.Duration) string {
	if d < 0 {
		return InvalidTurnaround
	}

	totalMinutes := int64(d / time.Minute)
	days := totalMinutes / (60 * 24)
	hours := (totalMinutes % (60 * 24)) / 60
	minutes := totalMinutes % 60

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", minutes))

	return strings.Join(parts, " ")
}
