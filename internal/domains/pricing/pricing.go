// Package pricing computes booking totals. Quotes are deterministic functions
// of their inputs so the amount computed at creation time is byte-for-byte
// comparable with the amount verified at payment time.
package pricing

import (
	"time"
)

const (
	hoursPerNight   = 24
	basisPointScale = 10000
)

// FeeRules holds the configured additive fees. Both knobs default to zero,
// which reduces a quote to nights times the nightly rate.
type FeeRules struct {
	// CleaningCents is a flat per-booking fee in the smallest currency unit.
	CleaningCents int64
	// ServiceBps is a percentage fee in basis points applied to the night total.
	ServiceBps int64
}

// Quote is the price breakdown for a stay.
type Quote struct {
	Nights           int64
	NightTotalCents  int64
	CleaningFeeCents int64
	ServiceFeeCents  int64
	TotalCents       int64
}

// Nights returns the whole days covered by the half-open interval [start, end).
// A non-positive interval yields zero.
func Nights(start, end time.Time) int64 {
	if !start.Before(end) {
		return 0
	}

	return int64(end.Sub(start) / (hoursPerNight * time.Hour))
}

// Calculate prices the stay [start, end) at the given nightly rate with the
// configured fee rules. All arithmetic is integer cents; the percentage fee
// truncates toward zero.
func Calculate(start, end time.Time, nightlyRateCents int64, rules FeeRules) Quote {
	nights := Nights(start, end)
	nightTotal := nights * nightlyRateCents
	serviceFee := nightTotal * rules.ServiceBps / basisPointScale

	return Quote{
		Nights:           nights,
		NightTotalCents:  nightTotal,
		CleaningFeeCents: rules.CleaningCents,
		ServiceFeeCents:  serviceFee,
		TotalCents:       nightTotal + rules.CleaningCents + serviceFee,
	}
}
