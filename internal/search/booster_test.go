package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barberly/search/internal/lexical"
)

func boostable(id string, kind lexical.EntityKind, locationID string, fused float64) Candidate {
	return Candidate{
		EntityID:   id,
		EntityKind: kind,
		FusedScore: fused,
		Metadata:   map[string]string{"location_id": locationID},
	}
}

func TestBoostNilContextIsNoOp(t *testing.T) {
	b := NewBooster(1.2, 1.1)
	candidates := []Candidate{
		boostable("b-1", lexical.EntityKindBarber, "loc-1", 0.5),
		boostable("s-1", lexical.EntityKindService, "loc-1", 0.4),
	}

	boosted := b.Boost(candidates, nil)
	require.Len(t, boosted, 2)
	for i, c := range boosted {
		assert.Equal(t, candidates[i].FusedScore, c.FusedScore)
		assert.Empty(t, c.BoostFactors)
	}
}

func TestBoostLocationMatch(t *testing.T) {
	b := NewBooster(1.2, 1.1)
	candidates := []Candidate{
		boostable("s-1", lexical.EntityKindService, "loc-1", 0.5),
		boostable("s-2", lexical.EntityKindService, "loc-2", 0.5),
	}

	boosted := b.Boost(candidates, &QueryContext{LocationID: "loc-1"})

	assert.InDelta(t, 0.6, boosted[0].FusedScore, 1e-9)
	require.Len(t, boosted[0].BoostFactors, 1)
	assert.Equal(t, LocationBoostName, boosted[0].BoostFactors[0].Name)
	assert.Equal(t, 1.2, boosted[0].BoostFactors[0].Multiplier)

	assert.InDelta(t, 0.5, boosted[1].FusedScore, 1e-9)
	assert.Empty(t, boosted[1].BoostFactors)
}

func TestBoostRoleAffinityOnlyForBarbers(t *testing.T) {
	b := NewBooster(1.2, 1.1)
	candidates := []Candidate{
		boostable("b-1", lexical.EntityKindBarber, "", 1.0),
		boostable("s-1", lexical.EntityKindService, "", 1.0),
	}

	boosted := b.Boost(candidates, &QueryContext{Role: "barber"})

	assert.InDelta(t, 1.1, boosted[0].FusedScore, 1e-9)
	require.Len(t, boosted[0].BoostFactors, 1)
	assert.Equal(t, RoleBoostName, boosted[0].BoostFactors[0].Name)

	assert.InDelta(t, 1.0, boosted[1].FusedScore, 1e-9)
	assert.Empty(t, boosted[1].BoostFactors)
}

func TestBoostCustomerRoleAppliesNothing(t *testing.T) {
	b := NewBooster(1.2, 1.1)
	candidates := []Candidate{boostable("b-1", lexical.EntityKindBarber, "", 1.0)}

	boosted := b.Boost(candidates, &QueryContext{Role: "customer"})
	assert.InDelta(t, 1.0, boosted[0].FusedScore, 1e-9)
	assert.Empty(t, boosted[0].BoostFactors)
}

func TestBoostsComposeMultiplicatively(t *testing.T) {
	b := NewBooster(1.2, 1.1)
	candidates := []Candidate{boostable("b-1", lexical.EntityKindBarber, "loc-1", 1.0)}

	boosted := b.Boost(candidates, &QueryContext{LocationID: "loc-1", Role: "stylist"})

	assert.InDelta(t, 1.32, boosted[0].FusedScore, 1e-9)
	require.Len(t, boosted[0].BoostFactors, 2)
	assert.Equal(t, LocationBoostName, boosted[0].BoostFactors[0].Name)
	assert.Equal(t, RoleBoostName, boosted[0].BoostFactors[1].Name)
}

func TestBoostNeverChangesMembership(t *testing.T) {
	b := NewBooster(1.2, 1.1)
	candidates := []Candidate{
		boostable("b-1", lexical.EntityKindBarber, "loc-1", 0.1),
		boostable("b-2", lexical.EntityKindBarber, "loc-2", 0.2),
		boostable("s-1", lexical.EntityKindService, "loc-1", 0.3),
	}

	boosted := b.Boost(candidates, &QueryContext{LocationID: "loc-1", Role: "barber"})
	require.Len(t, boosted, 3)
	for i, c := range boosted {
		assert.Equal(t, candidates[i].EntityID, c.EntityID)
	}
}
