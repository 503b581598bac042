package energy

import "github.com/wattgate/wattgate-core/internal/device"

// shedLadder maps budget-consumption percentages to the tiers forced
// OFF at that level. Rungs are ordered highest threshold first; the
// first rung whose threshold is met wins.
//
// The ladder is monotone: each rung's tier set contains every lower
// rung's tiers, so rising consumption always sheds a superset of what
// was already shed. Keeping it as an ordered table makes that property
// directly testable and makes adding tiers a one-line change.
var shedLadder = []struct {
	MinPercent float64
	Tiers      []device.Tier
}{
	{MinPercent: 100, Tiers: []device.Tier{device.TierHigh, device.TierMedium, device.TierLow}},
	{MinPercent: 80, Tiers: []device.Tier{device.TierMedium, device.TierLow}},
	{MinPercent: 60, Tiers: []device.Tier{device.TierLow}},
}

// TiersToShed returns the priority tiers that must be forced OFF at the
// given budget-consumption percentage. Below the lowest rung it returns
// nil.
//
// The mapping is pure and evaluated fresh on every telemetry event, not
// only at threshold crossings, so a restart mid-overrun re-sheds
// correctly.
func TiersToShed(percent float64) []device.Tier {
	for _, rung := range shedLadder {
		if percent >= rung.MinPercent {
			return rung.Tiers
		}
	}
	return nil
}
