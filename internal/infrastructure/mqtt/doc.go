// Package mqtt publishes decoded bus traffic to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS guarantees
//   - Last Will and Testament (LWT) so subscribers see a crashed decoder go offline
//   - Connection health monitoring
//
// # Topics
//
//	busdecode/decoded/{address}              every result for a device
//	busdecode/register/{address}/{register}  last value of a register (retained)
//	busdecode/system/status                  online/offline (retained, LWT)
//	busdecode/system/run                     latest run state and tally (retained)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Register("0x40", "0x8B")
//	err = client.PublishRetained(topic, payload)
//
// TLS should be enabled whenever the broker is not on the local host.
package mqtt
