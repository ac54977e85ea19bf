// Package config handles configuration loading for factdesk-console.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// Unset values fall back to defaults; the result is validated before use.
//
// # Configuration File
//
// Default location (see DefaultPath):
//
//  1. Path from FACTDESK_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/factdesk/console.yaml (~/.config when unset)
//
// `factdesk-console init` writes a starter file there.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  base_url: "${FACTDESK_API_URL}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to an empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	api:
//	  timeout: "15s"
//	console:
//	  session_duration: "168h"
//	  idle_timeout: "30m"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:8090"          # console listen address
//
//	api:
//	  base_url: "http://localhost:5000"    # upstream fact-checking API
//	  timeout: "15s"
//	  max_parallel: 4                      # per-row enrichment fan-out
//
//	database:
//	  path: "/var/lib/factdesk/console.db" # browser sessions
//
//	console:
//	  base_url: "https://desk.example.org"
//	  session_duration: "168h"
//	  idle_timeout: "30m"                  # view trees evicted after this
//	  secure_cookies: true
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Usage
//
//	cfg, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
