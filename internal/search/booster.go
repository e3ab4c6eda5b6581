package search

import "github.com/barberly/search/internal/lexical"

// Boost factor names recorded in the candidate audit list.
const (
	LocationBoostName = "location"
	RoleBoostName     = "role_affinity"
)

// providerRoles are caller roles treated as offering-provider roles
// for the role-affinity boost.
var providerRoles = map[string]bool{
	"barber":  true,
	"stylist": true,
	"owner":   true,
}

// Booster applies multiplicative score adjustments from caller context.
// It never changes candidate membership, only scores and the audit
// list.
type Booster struct {
	locationBoost float64
	roleBoost     float64
}

// NewBooster creates a booster. Multipliers below 1 fall back to the
// defaults (location 1.2, role affinity 1.1).
func NewBooster(locationBoost, roleBoost float64) *Booster {
	if locationBoost < 1 {
		locationBoost = 1.2
	}
	if roleBoost < 1 {
		roleBoost = 1.1
	}
	return &Booster{locationBoost: locationBoost, roleBoost: roleBoost}
}

// Boost multiplies each candidate's fused score by every boost whose
// condition holds, recording applied boosts in the candidate's
// BoostFactors list. A nil context applies nothing and records
// nothing. Boosts compose multiplicatively when more than one
// condition holds.
func (b *Booster) Boost(candidates []Candidate, qctx *QueryContext) []Candidate {
	if qctx == nil {
		return candidates
	}

	for i := range candidates {
		c := &candidates[i]

		if qctx.LocationID != "" && c.Metadata["location_id"] == qctx.LocationID {
			c.FusedScore *= b.locationBoost
			c.BoostFactors = append(c.BoostFactors, BoostFactor{Name: LocationBoostName, Multiplier: b.locationBoost})
		}

		if providerRoles[qctx.Role] && c.EntityKind == lexical.EntityKindBarber {
			c.FusedScore *= b.roleBoost
			c.BoostFactors = append(c.BoostFactors, BoostFactor{Name: RoleBoostName, Multiplier: b.roleBoost})
		}
	}
	return candidates
}
