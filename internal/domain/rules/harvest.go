// Package rules contains the pure calculation logic for harvest and
// regrowth mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import "github.com/openwilds/forage-colony/internal/domain/location"

// HarvestTake computes how much a harvest removes from a cell given the
// raw uniform roll in [spec.HarvestMin, spec.HarvestMax]. The take never
// exceeds what the cell currently holds; a take from an empty cell is
// always zero.
func HarvestTake(spec location.Spec, current, roll int) int {
	if current <= 0 {
		return 0
	}
	take := clampRoll(roll, spec.HarvestMin, spec.HarvestMax)
	if take > current {
		take = current
	}
	return take
}

// RegrowthAmount computes the fresh amount a cell holds after a regrowth
// event. Regrowth REPLACES the previous amount: whatever was left over
// is discarded, not added to.
func RegrowthAmount(spec location.Spec, roll int) int {
	return clampRoll(roll, spec.RegrowthMin, spec.RegrowthMax)
}

// RegrowthDue reports whether a cell whose countdown has just been
// incremented to elapsed should regrow this tick.
func RegrowthDue(spec location.Spec, elapsed int) bool {
	return elapsed >= spec.RegrowthInterval
}

func clampRoll(roll, min, max int) int {
	if roll < min {
		return min
	}
	if roll > max {
		return max
	}
	return roll
}
