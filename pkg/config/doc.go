// Package config provides configuration loading, defaults, and validation
// for the Beacon notification and usage-governance core.
//
// Configuration is defined in YAML and loaded with LoadConfig or
// LoadConfigWithEnvOverrides. Defaults are applied for any omitted field,
// and the final configuration is validated as a whole, with every violation
// reported in a single ValidationError.
//
// # Example
//
//	cfg, err := config.LoadConfigWithEnvOverrides("beacon.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
