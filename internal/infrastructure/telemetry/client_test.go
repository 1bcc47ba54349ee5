package telemetry_test

import (
	"errors"
	"testing"

	"github.com/gymhub/backoffice-core/internal/infrastructure/config"
	"github.com/gymhub/backoffice-core/internal/infrastructure/telemetry"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "gymhub-dev-token",
		Org:           "gymhub",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := telemetry.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should return error when disabled")
	}
	if !errors.Is(err, telemetry.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := telemetry.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should fail against unreachable server")
	}
	if !errors.Is(err, telemetry.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClient_ZeroValueSafe(t *testing.T) {
	// A nil-field client must tolerate lifecycle calls so callers can
	// hold an optional telemetry handle without nil checks everywhere.
	var c telemetry.Client

	if c.IsConnected() {
		t.Error("zero-value client should not report connected")
	}
	c.Flush()
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
	c.WriteLoginEvent(telemetry.LoginOutcomeSuccess)
	c.WriteOnlineGauge(3)
	c.WriteTokenRotation()
}
