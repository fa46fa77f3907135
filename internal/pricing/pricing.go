// Package pricing computes the depreciated asking price of a second-hand book
// from its base price and edition year.
package pricing

import "math"

const (
	currentYearRate = 0.85
	firstYearRate   = 0.70
	firstYearDrop   = 0.30
	yearlyDrop      = 0.10
	floorRate       = 0.10
)

// FinalPrice returns the depreciated price of a book with the given base price and
// edition year, as of currentYear.
//
// Editions from the current year (or later) sell at 85% and one-year-old editions at 70%.
// Older editions lose a further 10% of base per year, never going below 10% of base.
// Only the last case is rounded to two decimals; callers round the others for display.
// The base price is not validated.
func FinalPrice(base float64, editionYear, currentYear int) float64 {
	age := Age(editionYear, currentYear)
	switch {
	case age <= 0:
		return base * currentYearRate
	case age == 1:
		return base * firstYearRate
	}

	computed := base - base*firstYearDrop - base*yearlyDrop*float64(age-1)
	floor := base * floorRate
	if computed <= floor {
		return Round2(floor)
	}
	return Round2(computed)
}

// Age is the edition age in whole years. It is negative for future editions.
func Age(editionYear, currentYear int) int {
	return currentYear - editionYear
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
