package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStateChange records a device state transition.
//
// This is the primary write path: every applied relay toggle lands here as
// one point, tagged by channel and device name so Flux queries can group by
// either. The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - channel: Device channel number
//   - name: Device name (e.g., "Luz_Cozinha")
//   - state: Resulting logical state
//   - timestamp: When the transition was applied
func (c *Client) WriteStateChange(channel int, name string, state bool, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	stateValue := 0
	if state {
		stateValue = 1
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"channel": strconv.Itoa(channel),
			"name":    name,
		},
		map[string]interface{}{
			"state": stateValue,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"sessions": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
