package ingest

import (
	"regexp"
	"strconv"
)

// RoundDescriptor is one "RoundN: <url>" token of the scheduling column.
type RoundDescriptor struct {
	RoundNumber  int
	CalendlyLink string
}

var roundPattern = regexp.MustCompile(`(?i)Round(\d+):\s*(https?://\S+)`)

// ParseRounds extracts round descriptors in order of appearance. Fragments that
// do not match, and round numbers that are zero or overflow, are skipped.
func ParseRounds(scheduling string) []RoundDescriptor {
	matches := roundPattern.FindAllStringSubmatch(scheduling, -1)
	rounds := make([]RoundDescriptor, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		rounds = append(rounds, RoundDescriptor{
			RoundNumber:  n,
			CalendlyLink: m[2],
		})
	}
	return rounds
}
