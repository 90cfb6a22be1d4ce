// Package result defines the value types an execution produces: the
// terminating Status taxonomy, the checkpoint trace record shape, and the
// ExecutionResult returned to callers of the VM.
package result

import "encoding/json"

// Status is the terminal classification of one VM execution. Exactly one
// value is produced per run; see spec §7 for the full taxonomy.
type Status string

const (
	Complete            Status = "COMPLETE"
	Halted              Status = "HALTED"
	TermOpLimit         Status = "TERM_OP_LIMIT"
	TermCycleLimit      Status = "TERM_CYCLE_LIMIT"
	ErrStackOverflow    Status = "ERR_STACK_OVERFLOW"
	ErrBindingsOverflow Status = "ERR_BINDINGS_OVERFLOW"
	ErrCondition        Status = "ERR_CONDITION"
)

// Terminating reports whether the status represents an abnormal run-time
// termination (as opposed to COMPLETE or HALTED, which are normal outcomes
// of control flow rather than errors).
func (s Status) Terminating() bool {
	switch s {
	case Complete, Halted:
		return false
	default:
		return true
	}
}

// FinalState is the observable VM state at the moment execution stopped.
type FinalState struct {
	Stack        []string          `json:"stack"`
	Bindings     map[string]string `json:"bindings"`
	Depth        int               `json:"depth"`
	BindingCount int               `json:"binding_count"`
}

// TraceRecord is one checkpoint appended by WITNESS when tracing is enabled.
type TraceRecord struct {
	Phase     string            `json:"phase"`
	Operation int               `json:"operation"`
	Stack     []string          `json:"stack"`
	Bindings  map[string]string `json:"bindings"`
}

// ExecutionResult is the value object returned by one VM run.
type ExecutionResult struct {
	Status             Status        `json:"status"`
	PhasesExecuted     int           `json:"phases_executed"`
	OperationsExecuted int           `json:"operations_executed"`
	FinalState         FinalState    `json:"final_state"`
	Trace              []TraceRecord `json:"trace,omitempty"`
	ErrorMessage       string        `json:"error_message,omitempty"`
}

// JSON renders the result as indented JSON for the --json CLI flag.
func (r *ExecutionResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
