// Package config loads and validates the GymHub back-office configuration.
//
// Configuration is layered: hardcoded defaults, then a YAML file, then
// GYMHUB_* environment variables. Secrets (JWT signing keys, InfluxDB
// token) should always come from the environment in production.
//
// Example config.yaml:
//
//	api:
//	  host: "0.0.0.0"
//	  port: 8080
//	database:
//	  path: "data/gymhub.db"
//	  wal_mode: true
//	security:
//	  jwt:
//	    access_token_ttl: 30    # minutes
//	    rotation_token_ttl: 720 # hours (30 days)
//	  cookie:
//	    name: "gymhub_rotation"
package config
