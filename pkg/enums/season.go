package enums

import (
	"fmt"
	"time"
)

// Season is the quarterly billing period used for vendor hosting fees.
type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
)

var validSeasons = []Season{
	SeasonWinter,
	SeasonSpring,
	SeasonSummer,
	SeasonFall,
}

// String implements fmt.Stringer.
func (s Season) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s Season) IsValid() bool {
	for _, candidate := range validSeasons {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSeason converts raw input into a Season.
func ParseSeason(value string) (Season, error) {
	for _, candidate := range validSeasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid season %q", value)
}

// SeasonForMonth maps a calendar month onto its billing season:
// Dec-Feb winter, Mar-May spring, Jun-Aug summer, Sep-Nov fall.
func SeasonForMonth(month time.Month) Season {
	switch month {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonFall
	}
}

// SeasonOf returns the season and season year for the given instant.
// December sales accrue to the winter ledger of the same calendar year.
func SeasonOf(at time.Time) (Season, int) {
	return SeasonForMonth(at.Month()), at.Year()
}
