package mqtt

import "fmt"

// Topic prefixes for WattGate's own MQTT topics.
//
// Device telemetry and control topics are owner-defined and stored on
// each device in the registry; only system-level topics live under the
// wattgate/ prefix.
const (
	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "wattgate/system"
)

// Topics provides builders for WattGate MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// SystemStatus returns the system status topic.
//
// The core publishes online/offline status here (retained), and the
// broker publishes the LWT here on unexpected disconnect.
//
// Example: wattgate/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
