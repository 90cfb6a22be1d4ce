package vm

// Config bounds every resource axis the VM tracks. Each field maps 1:1 to a
// CLI flag / JSON config key documented in spec §6.
type Config struct {
	MaxOperations         int  `json:"max_operations"`
	MaxStackDepth         int  `json:"max_stack_depth"`
	MaxSaturateIterations int  `json:"max_saturate_iterations"`
	MaxBindings           int  `json:"max_bindings"`
	TraceEnabled          bool `json:"trace_enabled"`
}

// DefaultConfig returns the spec §6 default budgets, tracing disabled.
func DefaultConfig() Config {
	return Config{
		MaxOperations:         100000,
		MaxStackDepth:         256,
		MaxSaturateIterations: 1000,
		MaxBindings:           1024,
		TraceEnabled:          false,
	}
}
