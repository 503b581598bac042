// Package energy implements budget accounting and priority-tiered load
// shedding.
//
// # Accounting
//
// The Accountant sums recorded consumption deltas over the current
// calendar day (local midnight to midnight) and compares the total
// against the active EnergyLimit. The active limit at any instant is
// the latest-starting limit whose window [start, end) contains it.
//
// # Shedding
//
// Consumption as a percentage of budget maps to tiers forced OFF
// through a monotone ladder:
//
//	>= 100%  high, medium, low
//	>=  80%  medium, low
//	>=  60%  low
//	<   60%  none
//
// Every ON device in a forced-OFF tier is switched off, added to the
// BlockedSet, and announced on the device-blocked channel. Blocked
// devices stay off until an operator manually switches them ON or the
// process restarts; the schedule reconciler honours the block.
package energy
