package ingest

import (
	"strconv"
	"strings"
	"time"
)

const addedOnLayout = "2 Jan 15:04 2006"

// NormalizeAddedOn resolves a year-less "04 Nov 1:18" timestamp relative to now.
// The current year is assumed unless that puts the instant strictly after now,
// in which case the previous year is used. Unparseable input, including a date
// that does not exist in the current year such as 29 Feb, yields nil.
func NormalizeAddedOn(raw string, now time.Time) *time.Time {
	value := strings.Join(strings.Fields(raw), " ")
	if value == "" {
		return nil
	}

	loc := now.Location()
	year := now.Year()

	parsed, err := time.ParseInLocation(addedOnLayout, withYear(value, year), loc)
	if err != nil {
		return nil
	}
	if parsed.After(now) {
		if lastYear, err := time.ParseInLocation(addedOnLayout, withYear(value, year-1), loc); err == nil {
			parsed = lastYear
		}
	}
	return &parsed
}

func withYear(value string, year int) string {
	return value + " " + strconv.Itoa(year)
}
