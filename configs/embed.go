// Package configs provides embedded configuration templates for caselaw.
//
// How Configuration Templates Work:
//
// Templates are embedded at build time using Go's //go:embed directive.
// This ensures they are available in ALL distributions:
//   - Source builds (go install)
//   - Binary releases
//   - Homebrew installations
//
// The templates are used by:
//   - cmd/caselaw/cmd/config.go → creates user config at ~/.config/caselaw/config.yaml
//
// No command writes the project template; it is an example for a
// hand-written .caselaw.yaml.
//
// Template files:
//   - project-config.example.yaml: Deployment settings (corpus paths, search, rerank)
//   - user-config.example.yaml: Machine-specific settings (embedding provider, Ollama host, performance, log level)
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//   1. Hardcoded defaults (internal/config/config.go NewConfig())
//   2. User config (~/.config/caselaw/config.yaml)
//   3. Project config (.caselaw.yaml)
//   4. Environment variables (CASELAW_*)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
// Changes will be embedded in the next build.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by: `caselaw config init` at ~/.config/caselaw/config.yaml
// Contains: Machine-specific settings like embedding provider, Ollama host, performance, log level.
// Use case: Settings that apply to all projects on this machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Read from: .caselaw.yaml in the project root (written by hand; no command creates it)
// Contains: Deployment settings like corpus database paths, search weights, rerank options.
// Use case: Settings that are version-controlled with the project.
//
// See: configs/project-config.example.yaml for the full template.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
