// Package config provides configuration management for the dashboard relay.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. A YAML configuration file (config.yaml or ECON_CONFIG_FILE)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ECON_<SECTION>_<FIELD>:
//
//	ECON_SERVER_PORT=4000
//	ECON_UPSTREAM_BASE_URL=https://data360api.worldbank.org
//	ECON_UPSTREAM_REGION_CODE=MYS
//	ECON_UPSTREAM_CATALOG_FILE=catalog.yaml
//	ECON_LOGGING_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For tests, config.Default() returns a configuration that needs neither
// environment variables nor files.
package config
