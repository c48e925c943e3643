// Package config loads budget-agent settings from an optional YAML file with
// environment variable overrides.
//
// Example file:
//
//	log_level: debug
//	credentials:
//	  mode: service_account
//	  service_account_key_file: /etc/budget-agent/sa.json
//	  subject: me@example.com
//	gmail:
//	  call_timeout_seconds: 5
//	  max_retries: 2
//	search:
//	  default_max_results: 5
//	  window_days: 3
package config
