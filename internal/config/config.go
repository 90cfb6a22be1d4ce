// Package config loads VM resource budgets from a JSON file, validating it
// against an embedded JSON Schema and tolerating older-but-compatible
// schemaVersion values rather than failing closed.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"

	"github.com/lmn-vm/lmn/internal/vm"
)

var compiledSchema = mustCompile(schemaJSON)

func mustCompile(doc string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	const resourceURL = "schema://lmn-config.json"
	if err := compiler.AddResource(resourceURL, strings.NewReader(doc)); err != nil {
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	s, err := compiler.Compile(resourceURL)
	if err != nil {
		panic(fmt.Sprintf("config: failed to compile embedded schema: %v", err))
	}
	return s
}

// fileConfig mirrors vm.Config but with optional fields, so a config file
// may override only the budgets it cares about.
type fileConfig struct {
	SchemaVersion         string `json:"schemaVersion"`
	MaxOperations         *int   `json:"max_operations"`
	MaxStackDepth         *int   `json:"max_stack_depth"`
	MaxSaturateIterations *int   `json:"max_saturate_iterations"`
	MaxBindings           *int   `json:"max_bindings"`
	TraceEnabled          *bool  `json:"trace_enabled"`
}

// Load reads and validates a JSON config file at path, returning a
// vm.Config seeded from vm.DefaultConfig() with any present fields
// overridden.
func Load(path string) (vm.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return vm.Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse validates and decodes a config document already read into memory.
func Parse(raw []byte) (vm.Config, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return vm.Config{}, fmt.Errorf("parse config JSON: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return vm.Config{}, fmt.Errorf("config failed schema validation: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return vm.Config{}, fmt.Errorf("decode config: %w", err)
	}

	checkSchemaVersion(fc.SchemaVersion)

	cfg := vm.DefaultConfig()
	if fc.MaxOperations != nil {
		cfg.MaxOperations = *fc.MaxOperations
	}
	if fc.MaxStackDepth != nil {
		cfg.MaxStackDepth = *fc.MaxStackDepth
	}
	if fc.MaxSaturateIterations != nil {
		cfg.MaxSaturateIterations = *fc.MaxSaturateIterations
	}
	if fc.MaxBindings != nil {
		cfg.MaxBindings = *fc.MaxBindings
	}
	if fc.TraceEnabled != nil {
		cfg.TraceEnabled = *fc.TraceEnabled
	}
	return cfg, nil
}

// checkSchemaVersion logs a warning when a config file declares a major
// schemaVersion different from CurrentSchemaVersion, instead of rejecting it -
// additive config fields should degrade gracefully rather than fail closed.
func checkSchemaVersion(v string) {
	if v == "" {
		return
	}
	declared := v
	if !strings.HasPrefix(declared, "v") {
		declared = "v" + declared
	}
	if !semver.IsValid(declared) {
		slog.Warn("config schemaVersion is not a valid semver value, ignoring", "schemaVersion", v)
		return
	}
	if semver.Major(declared) != semver.Major(CurrentSchemaVersion) {
		slog.Warn("config schemaVersion major version differs from this build",
			"declared", declared, "current", CurrentSchemaVersion)
	}
}
