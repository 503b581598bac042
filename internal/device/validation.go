package device

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength  = 100
	maxTopicLength = 255
)

// Pre-computed validation sets for O(1) lookups.
var (
	validTiers    map[Tier]struct{}
	validStatuses map[Status]struct{}
)

func init() {
	validTiers = make(map[Tier]struct{}, len(AllTiers()))
	for _, t := range AllTiers() {
		validTiers[t] = struct{}{}
	}

	validStatuses = make(map[Status]struct{}, len(AllStatuses()))
	for _, s := range AllStatuses() {
		validStatuses[s] = struct{}{}
	}
}

// ValidateDevice performs comprehensive validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	if err := ValidateTopic(d.Topic); err != nil {
		return err
	}

	// Control topic is optional; validate only when present.
	if d.ControlTopic != nil && *d.ControlTopic != "" {
		if err := ValidateTopic(*d.ControlTopic); err != nil {
			return err
		}
	}

	if err := ValidateTier(d.Tier); err != nil {
		return err
	}

	if d.Status != "" {
		if err := ValidateStatus(d.Status); err != nil {
			return err
		}
	}

	if d.RatedWatts < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRatedWatts, d.RatedWatts)
	}

	return nil
}

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateTopic checks if an MQTT topic is usable for a single device.
// Wildcards are rejected: a device topic must identify exactly one device,
// both for subscription and for the topic-to-device index.
func ValidateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}
	if len(topic) > maxTopicLength {
		return fmt.Errorf("%w: topic exceeds %d characters", ErrInvalidTopic, maxTopicLength)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: topic must not contain wildcards", ErrInvalidTopic)
	}
	return nil
}

// ValidateTier checks if a tier is valid.
func ValidateTier(tier Tier) error {
	if _, ok := validTiers[tier]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidTier, tier)
}

// ValidateStatus checks if a status is valid.
func ValidateStatus(status Status) error {
	if _, ok := validStatuses[status]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}
