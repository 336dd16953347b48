// Package influxdb writes numeric register readings to InfluxDB so a
// capture can be graphed over time.
//
// It wraps the official influxdb-client-go v2 library. Every decoded
// register with a numeric value becomes one point in the register_value
// measurement, tagged by address, device, register and run.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSample(influxdb.Sample{Address: "0x40", Register: "0x8B", Value: 5.7})
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). Async write errors are delivered through SetOnError.
package influxdb
