package device

import "time"

// Device represents a metered electrical load known to the system.
// Each device publishes telemetry on its own MQTT topic; devices with a
// control topic can also be switched by the core.
// Matches the devices table in migrations/20260315_000000_initial_schema.up.sql.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Topic is the MQTT topic the device publishes telemetry on.
	// Unique across all devices; used to resolve inbound messages.
	Topic string `json:"topic"`

	// ControlTopic is the MQTT topic the core publishes ON/OFF commands to.
	// Nil for monitor-only devices (meters without a relay).
	ControlTopic *string `json:"control_topic,omitempty"`

	// Tier determines shedding order when consumption exceeds the budget.
	// Lower tiers are shed first; TierNone devices are never shed.
	Tier Tier `json:"tier"`

	// RatedWatts is the nominal power draw, used for display and planning.
	RatedWatts float64 `json:"rated_watts"`

	// Status is the last known power state (ON or OFF).
	Status Status `json:"status"`

	// ScheduleEnabled marks whether the device participates in
	// owner-defined daily schedules.
	ScheduleEnabled bool `json:"schedule_enabled"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Controllable reports whether the device has a control topic.
func (d *Device) Controllable() bool {
	return d.ControlTopic != nil && *d.ControlTopic != ""
}

// DeepCopy creates an independent copy of the Device.
// Pointer fields are cloned so modifications to the copy do not
// affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d

	if d.ControlTopic != nil {
		topic := *d.ControlTopic
		cpy.ControlTopic = &topic
	}

	return &cpy
}

// Tier represents a device's load-shedding priority.
type Tier string

// Tier constants, ordered from first-shed to never-shed.
const (
	// TierLow is shed first when consumption approaches the budget.
	TierLow Tier = "low"

	// TierMedium is shed once consumption reaches 80% of the budget.
	TierMedium Tier = "medium"

	// TierHigh is shed only when the budget is fully exhausted.
	TierHigh Tier = "high"

	// TierNone marks devices exempt from load shedding.
	TierNone Tier = "none"
)

// AllTiers returns all valid tier values.
func AllTiers() []Tier {
	return []Tier{TierLow, TierMedium, TierHigh, TierNone}
}

// Status represents a device's power state.
type Status string

// Status constants. The wire values are uppercase to match the
// firmware's command vocabulary.
const (
	StatusOn  Status = "ON"
	StatusOff Status = "OFF"
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{StatusOn, StatusOff}
}
