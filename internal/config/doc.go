// Package config provides configuration types and loading for wiggly.
//
// Configuration is read from a YAML or TOML file (chosen by extension),
// with ${VAR} and ${VAR:-default} environment substitution, then
// overridden by WIGGLY_* environment variables, then validated.
//
//	cfg, err := config.Load("wiggly.yaml")
//	if err != nil {
//	    return err
//	}
//
// Missing fields keep the values from Default.
package config
