package location

import "testing"

func TestRegistryClosedSet(t *testing.T) {
	for _, id := range All {
		if !IsValid(id) {
			t.Errorf("Expected %s to be a valid location", id)
		}
	}
	if IsValid("volcano") {
		t.Errorf("Unknown location accepted")
	}
}

func TestSpecRangesSane(t *testing.T) {
	for id, spec := range Registry {
		if spec.RegrowthInterval <= 0 {
			t.Errorf("%s: regrowth interval must be positive", id)
		}
		if spec.RegrowthMin <= 0 || spec.RegrowthMax < spec.RegrowthMin {
			t.Errorf("%s: bad regrowth range [%d,%d]", id, spec.RegrowthMin, spec.RegrowthMax)
		}
		if spec.HarvestMin <= 0 || spec.HarvestMax < spec.HarvestMin {
			t.Errorf("%s: bad harvest range [%d,%d]", id, spec.HarvestMin, spec.HarvestMax)
		}
		if spec.Produces == "" {
			t.Errorf("%s: missing produced resource", id)
		}
	}
}
