// Package config handles configuration loading for the hris console binaries.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The file extension picks the decoder: .toml is TOML, anything
// else is YAML. Defaults are applied before validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from HRIS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/hris/console.yaml
//  3. ~/.config/hris/console.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  base_url: "${HRIS_API_URL}"
//
// # Configuration Sections
//
//	api:
//	  base_url: "http://localhost:3000"  # backend REST API
//	  timeout: "30s"
//
//	session:
//	  backend: "file"                    # memory, file, sqlite
//	  path: "/home/me/.local/share/hris"
//
//	rbac:
//	  cache_ttl: "15s"
//	  max_entries: 1024
//	  redis_url: ""                      # shared decision cache (optional)
//
//	gate:
//	  guard_timeout: "3500ms"
//
//	console:
//	  http_addr: "127.0.0.1:3001"
//	  upstream: ""                       # defaults to api.base_url
//
//	logging:
//	  level: "info"                      # debug, info, warn, error
//	  format: "text"                     # text, json
package config
