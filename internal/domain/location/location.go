// Package location defines the closed set of harvestable locations and
// their production parameters.
// This package is PURE and must NOT import any infrastructure packages.
package location

import "github.com/openwilds/forage-colony/internal/domain/resource"

// ID identifies a harvestable location. The set is fixed at startup and
// never grows or shrinks during a colony's lifetime.
type ID string

const (
	Forest ID = "forest"
	River  ID = "river"
	Cave   ID = "cave"
)

// Spec holds the static production parameters of a location.
type Spec struct {
	Produces         resource.Kind `json:"produces"`
	RegrowthInterval int           `json:"regrowth_interval"` // ticks between regrowth draws
	RegrowthMin      int           `json:"regrowth_min"`
	RegrowthMax      int           `json:"regrowth_max"`
	HarvestMin       int           `json:"harvest_min"`
	HarvestMax       int           `json:"harvest_max"`
}

// Registry contains the reference configuration for every location.
// Regrowth REPLACES the current amount with a fresh draw; it never
// accumulates on top of leftovers.
var Registry = map[ID]Spec{
	Forest: {
		Produces:         resource.Food,
		RegrowthInterval: 15,
		RegrowthMin:      10,
		RegrowthMax:      30,
		HarvestMin:       1,
		HarvestMax:       5,
	},
	River: {
		Produces:         resource.Water,
		RegrowthInterval: 25,
		RegrowthMin:      20,
		RegrowthMax:      50,
		HarvestMin:       2,
		HarvestMax:       8,
	},
	Cave: {
		Produces:         resource.Energy,
		RegrowthInterval: 40,
		RegrowthMin:      5,
		RegrowthMax:      15,
		HarvestMin:       1,
		HarvestMax:       3,
	},
}

// All lists the location IDs in a stable order.
var All = []ID{Forest, River, Cave}

// IsValid reports whether id belongs to the closed location set.
func IsValid(id ID) bool {
	_, ok := Registry[id]
	return ok
}

// GetSpec returns the reference spec for a location.
func GetSpec(id ID) (Spec, bool) {
	spec, ok := Registry[id]
	return spec, ok
}
