// Package config holds the runtime configuration for credshield.
//
// Configuration comes from three places, in increasing precedence:
//  1. Built-in defaults (NewConfig)
//  2. A YAML credentials file (.credshield), found via an explicit path,
//     the current directory, or the user's home directory
//  3. CLI flags
//
// The LLM API credential is required for every scoring and verification
// call and is validated before any network request is made, so a missing
// key fails fast with ErrNoAPIKey instead of surfacing as an upstream
// failure mid-scan.
package config
