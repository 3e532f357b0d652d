// Package item defines the portable goods a forager can carry and consume.
// This package is PURE and must NOT import any infrastructure packages.
package item

import "github.com/openwilds/forage-colony/internal/domain/resource"

// Kind identifies the kind of a carried item.
type Kind string

const (
	KindBerries     Kind = "BERRIES"      // Basic trail food
	KindWaterskin   Kind = "WATERSKIN"    // Portable hydration
	KindHoneycomb   Kind = "HONEYCOMB"    // Dense energy reserve
	KindDriedFish   Kind = "DRIED_FISH"   // Premium food, keeps forever
	KindGlowMoss    Kind = "GLOW_MOSS"    // Cave find, mild energy boost
	KindRiverPearls Kind = "RIVER_PEARLS" // Trade good, no nutritional value
)

// Definition provides metadata about an item kind.
type Definition struct {
	Name        string
	Description string
	Restores    resource.Kind // Zero value means the item is inert
	Amount      int           // Resource units restored on consumption
}

// Registry contains all known items and their properties.
var Registry = map[Kind]Definition{
	KindBerries: {
		Name:        "Wild Berries",
		Description: "A handful of mixed berries. Filling enough.",
		Restores:    resource.Food,
		Amount:      5,
	},
	KindWaterskin: {
		Name:        "Waterskin",
		Description: "River water in a stitched hide. Tastes of leather.",
		Restores:    resource.Water,
		Amount:      10,
	},
	KindHoneycomb: {
		Name:        "Honeycomb",
		Description: "Raw comb dripping with honey. A burst of vigor.",
		Restores:    resource.Energy,
		Amount:      8,
	},
	KindDriedFish: {
		Name:        "Dried Fish",
		Description: "Salted and sun-dried. Survives any season.",
		Restores:    resource.Food,
		Amount:      12,
	},
	KindGlowMoss: {
		Name:        "Glow Moss",
		Description: "Faintly luminous moss scraped from cave walls.",
		Restores:    resource.Energy,
		Amount:      3,
	},
	KindRiverPearls: {
		Name:        "River Pearls",
		Description: "Pretty, useless, and therefore valuable.",
	},
}

// Get returns the definition for an item kind.
func Get(k Kind) (Definition, bool) {
	def, ok := Registry[k]
	return def, ok
}
