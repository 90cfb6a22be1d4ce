package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lmn-vm/lmn/internal/vm"
)

func TestParseOverridesOnlyGivenFields(t *testing.T) {
	cfg, err := Parse([]byte(`{"schemaVersion": "1.0.0", "max_operations": 10, "trace_enabled": true}`))
	require.NoError(t, err)

	def := vm.DefaultConfig()
	require.Equal(t, 10, cfg.MaxOperations)
	require.True(t, cfg.TraceEnabled)
	require.Equal(t, def.MaxStackDepth, cfg.MaxStackDepth)
	require.Equal(t, def.MaxSaturateIterations, cfg.MaxSaturateIterations)
	require.Equal(t, def.MaxBindings, cfg.MaxBindings)
}

func TestParseEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, vm.DefaultConfig(), cfg)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`{"bogus_field": 1}`))
	require.Error(t, err)
}

func TestParseRejectsNonPositiveBudget(t *testing.T) {
	_, err := Parse([]byte(`{"max_operations": 0}`))
	require.Error(t, err)
}

func TestParseToleratesOlderSchemaVersion(t *testing.T) {
	cfg, err := Parse([]byte(`{"schemaVersion": "0.9.0", "max_bindings": 5}`))
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MaxBindings)
}

func TestParseRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(`{"max_operations": 42, "max_stack_depth": 8, "max_saturate_iterations": 9, "max_bindings": 3, "trace_enabled": true}`))
	require.NoError(t, err)
	require.Equal(t, vm.Config{
		MaxOperations:         42,
		MaxStackDepth:         8,
		MaxSaturateIterations: 9,
		MaxBindings:           3,
		TraceEnabled:          true,
	}, cfg)

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	again, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}
