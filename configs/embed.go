// Package configs embeds the configuration template written by
// `edmindex config init`.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (internal/config NewConfig)
//  2. User config (~/.config/edmindex/config.yaml)
//  3. Project config (.edmindex.yaml)
//  4. Environment variables (EDMINDEX_*)
//  5. Command-line flags
//
// The template must stay loadable and agree with NewConfig; configs_test.go
// checks both.
package configs

import _ "embed"

// UserConfigTemplate is the commented user configuration.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
