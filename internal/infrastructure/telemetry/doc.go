// Package telemetry records operational metrics to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes, and health monitoring.
//
// # Purpose
//
// This package handles time-series data for back-office dashboards:
//   - Login attempt outcomes (success / rejected / forbidden)
//   - Online operator counts sampled on presence changes
//   - Access-token rotation counts
//
// No personal data, email addresses, or credential material is ever
// written; only outcome classes and counts.
//
// # Usage
//
//	client, err := telemetry.Connect(cfg.InfluxDB)
//	if errors.Is(err, telemetry.ErrDisabled) {
//	    // telemetry off, continue without it
//	}
//	defer client.Close()
//
//	client.WriteLoginEvent(telemetry.LoginOutcomeSuccess)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes; async
// write errors are delivered to the SetOnError callback.
package telemetry
