package mqtt

import "fmt"

// Topic prefixes for the Relay Core MQTT namespace.
const (
	// TopicPrefix is the base for all Relay Core topics.
	TopicPrefix = "relaycore"

	// TopicPrefixDevice is the base for device topics.
	TopicPrefixDevice = "relaycore/device"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "relaycore/system"
)

// Topics provides builders for Relay Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState(2)
//	// Returns: "relaycore/device/2/state"
type Topics struct{}

// DeviceState returns the retained state topic for a device channel.
//
// Example: relaycore/device/2/state
func (Topics) DeviceState(channel int) string {
	return fmt.Sprintf("%s/%d/state", TopicPrefixDevice, channel)
}

// DeviceCommand returns the command topic for a device channel. External
// publishers write JSON {"state": bool} or {"toggle": true} payloads here.
//
// Example: relaycore/device/2/command
func (Topics) DeviceCommand(channel int) string {
	return fmt.Sprintf("%s/%d/command", TopicPrefixDevice, channel)
}

// SystemStatus returns the system status topic, used for the retained
// online/offline payloads and the LWT.
//
// Example: relaycore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: relaycore/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixDevice)
}

// AllDeviceCommands returns a pattern matching every device command topic.
//
// Pattern: relaycore/device/+/command
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/+/command", TopicPrefixDevice)
}

// AllTopics returns a pattern matching all Relay Core topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: relaycore/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
