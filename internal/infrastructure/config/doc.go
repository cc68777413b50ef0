// Package config handles loading and validating devtrack configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with DEVTRACK_* environment variables
//   - Validation of every section, reporting all problems at once
//
// The service runs without a config file: when the default path is absent
// the built-in defaults apply (HTTP on port 5000, MQTT disabled).
//
// Usage:
//
//	cfg, err := config.Load(config.DefaultPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
