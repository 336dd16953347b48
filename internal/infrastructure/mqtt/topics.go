package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
const (
	// TopicPrefix is the root of every busdecode topic.
	TopicPrefix = "busdecode"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "busdecode/system"
)

// Topics provides builders for busdecode MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Decoded("0x40")
//	// Returns: "busdecode/decoded/0x40"
type Topics struct{}

// Decoded returns the topic carrying every result for a device.
//
// Example: busdecode/decoded/0x40
func (Topics) Decoded(address string) string {
	return fmt.Sprintf("%s/decoded/%s", TopicPrefix, segment(address))
}

// Register returns the retained topic for the last value of one register.
//
// Example: busdecode/register/0x40/0x8B
func (Topics) Register(address, register string) string {
	return fmt.Sprintf("%s/register/%s/%s", TopicPrefix, segment(address), segment(register))
}

// Errors returns the topic for malformed and unresolved results.
//
// Example: busdecode/errors
func (Topics) Errors() string {
	return TopicPrefix + "/errors"
}

// SystemStatus returns the system status topic.
//
// Example: busdecode/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// SystemRun returns the retained topic describing the latest decode run.
//
// Example: busdecode/system/run
func (Topics) SystemRun() string {
	return TopicPrefixSystem + "/run"
}

// segment makes s safe as a single topic level: wildcard and separator
// characters become "_" and an empty value becomes "none".
func segment(s string) string {
	if s == "" {
		return "none"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '_'
		}
		return r
	}, s)
}
