// Package resource defines the resource kinds tracked by every forager
// ledger and produced by harvest locations.
// This package is PURE and must NOT import any infrastructure packages.
package resource

// Kind identifies one of the fixed resource pools a forager maintains.
type Kind string

const (
	Food   Kind = "food"
	Water  Kind = "water"
	Energy Kind = "energy"
)

// Kinds lists every kind in a stable order, for iteration and display.
var Kinds = []Kind{Food, Water, Energy}

// IsValid reports whether k belongs to the fixed kind set.
func IsValid(k Kind) bool {
	switch k {
	case Food, Water, Energy:
		return true
	}
	return false
}
