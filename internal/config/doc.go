// Package config provides termcore's configuration.
//
// Configuration is layered: built-in defaults, then an optional TOML
// file, then TERMCORE_* environment variables, then command-line flags
// applied by the caller. Validate checks the merged result.
//
// Example file:
//
//	[terminal]
//	rows = 40
//	cols = 120
//	read_timeout = "2ms"
//
//	[shell]
//	path = "/bin/bash"
//
//	[retry]
//	max_retries = 8
//	base_delay = "50ms"
//
//	[log]
//	level = "debug"
//	file = "/tmp/termcore.log"
package config
