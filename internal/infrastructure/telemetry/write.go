package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Login outcomes recorded by WriteLoginEvent.
const (
	LoginOutcomeSuccess   = "success"
	LoginOutcomeRejected  = "rejected"
	LoginOutcomeForbidden = "forbidden"
)

// WriteLoginEvent records the outcome of a login attempt.
//
// Only the outcome class is recorded, never the email or any credential
// material. The write is non-blocking; data is batched and sent
// asynchronously.
func (c *Client) WriteLoginEvent(outcome string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"login_events",
		map[string]string{
			"outcome": outcome,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteOnlineGauge records the number of operators currently online,
// sampled on every presence membership change.
func (c *Client) WriteOnlineGauge(count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"presence",
		nil,
		map[string]interface{}{
			"online_operators": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteTokenRotation records a successful access-token refresh.
func (c *Client) WriteTokenRotation() {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"token_rotations",
		nil,
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
