// Package configs provides embedded configuration data for addrmatch.
//
// Files are embedded at build time so they ship with every binary:
//   - abbreviations.yaml: the built-in abbreviation table used by the normalizer
//   - project-config.example.yaml: template written by `addrmatch config init`
//
// Configuration hierarchy (see internal/config Load()):
//  1. Hardcoded defaults
//  2. User config (~/.config/addrmatch/config.yaml)
//  3. Project config (.addrmatch.yaml)
//  4. Environment variables (ADDRMATCH_*)
package configs

import _ "embed"

// Abbreviations is the default abbreviation table in YAML form.
//
//go:embed abbreviations.yaml
var Abbreviations []byte

// ProjectConfigTemplate is the template for project-level configuration.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
