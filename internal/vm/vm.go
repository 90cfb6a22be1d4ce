// Package vm implements the LMN execution engine: operator dispatch, the
// SATURATE fixed-point loop, resource-budget enforcement, and checkpoint
// tracing, as specified in spec §4-§7.
package vm

import (
	"strconv"

	"github.com/lmn-vm/lmn/internal/ast"
	"github.com/lmn-vm/lmn/internal/condition"
	"github.com/lmn-vm/lmn/internal/invariant"
	"github.com/lmn-vm/lmn/internal/result"
)

// VM owns one program execution's mutable state. A VM instance executes one
// program at a time; Run resets all state before each program, so one
// instance may be reused for another program.
type VM struct {
	config Config

	stack    []string
	bindings map[string]string

	phaseCounter     int
	operationCounter int
	halted           bool
	currentPhase     string

	trace []result.TraceRecord
}

// New creates a VM bound to cfg. The program tree passed to Run may be
// shared read-only across many VM instances; the VM itself owns no
// references into it beyond the duration of one Run call.
func New(cfg Config) *VM {
	vm := &VM{config: cfg}
	vm.reset()
	return vm
}

// reset restores every field to its initial zero/empty value, so that
// running two programs sequentially on one VM matches two fresh instances.
func (vm *VM) reset() {
	vm.stack = nil
	vm.bindings = make(map[string]string)
	vm.phaseCounter = 0
	vm.operationCounter = 0
	vm.halted = false
	vm.currentPhase = ""
	vm.trace = nil
}

// outcome classifies how one dispatch (or block/phase of dispatches) ended.
type outcome int

const (
	outcomeContinue outcome = iota
	outcomeBreakBlock
	outcomeHalt
	outcomeTerminate
)

// Run executes prog from a clean state and returns the ExecutionResult.
func (vm *VM) Run(prog *ast.Program) result.ExecutionResult {
	invariant.NotNil(prog, "prog")
	vm.reset()

	for _, phase := range prog.Phases {
		oc, status := vm.runPhase(phase)
		switch oc {
		case outcomeHalt:
			return vm.buildResult(result.Halted)
		case outcomeTerminate:
			return vm.buildResult(status)
		}
		// outcomeContinue or outcomeBreakBlock: the phase ran to
		// completion or was truncated by a top-level GATE break; either
		// way we proceed to the next phase.
	}

	return vm.buildResult(result.Complete)
}

func (vm *VM) runPhase(phase ast.Phase) (outcome, result.Status) {
	vm.phaseCounter++
	vm.currentPhase = phase.Name

	for _, op := range phase.Operations {
		oc, status := vm.dispatch(op)
		switch oc {
		case outcomeBreakBlock:
			// spec §4.4/§9: a break-block signal escaping the top level
			// of a phase truncates that phase only; later phases still run.
			return outcomeContinue, ""
		case outcomeHalt:
			return outcomeHalt, ""
		case outcomeTerminate:
			return outcomeTerminate, status
		}
	}
	return outcomeContinue, ""
}

// dispatch is the single entry point for executing one Operation, whether
// it appears directly in a phase or inside a SATURATE block. It increments
// operation_counter exactly once per call, before applying any effect.
func (vm *VM) dispatch(op ast.Operation) (outcome, result.Status) {
	if !vm.tryIncrementOps() {
		return outcomeTerminate, result.TermOpLimit
	}

	switch op.Operator {
	case ast.OpPush:
		invariant.Precondition(len(op.Arguments) == 1, "PUSH must carry exactly 1 argument, got %d", len(op.Arguments))
		return vm.execPush(op.Arguments[0])
	case ast.OpInvert:
		vm.execInvert()
		return outcomeContinue, ""
	case ast.OpBind:
		invariant.Precondition(len(op.Arguments) == 2, "BIND must carry exactly 2 arguments, got %d", len(op.Arguments))
		return vm.execBind(op.Arguments[0], op.Arguments[1])
	case ast.OpRelease:
		invariant.Precondition(len(op.Arguments) == 1, "RELEASE must carry exactly 1 argument, got %d", len(op.Arguments))
		vm.execRelease(op.Arguments[0])
		return outcomeContinue, ""
	case ast.OpGate:
		invariant.Precondition(len(op.Arguments) == 1, "GATE must carry exactly 1 argument, got %d", len(op.Arguments))
		return vm.execGate(op.Arguments[0])
	case ast.OpSaturate:
		invariant.Precondition(len(op.Arguments) == 1, "SATURATE must carry exactly 1 argument, got %d", len(op.Arguments))
		return vm.execSaturate(op.Arguments[0].Block)
	case ast.OpWitness:
		vm.execWitness()
		return outcomeContinue, ""
	case ast.OpHalt:
		vm.halted = true
		return outcomeHalt, ""
	default:
		invariant.Invariant(false, "unreachable operator %q reached dispatch", op.Operator)
		return outcomeTerminate, result.ErrCondition
	}
}

// tryIncrementOps advances operation_counter by one unless doing so would
// exceed max_operations, in which case it leaves the counter untouched and
// reports failure - the triggering operation's effect is never applied.
func (vm *VM) tryIncrementOps() bool {
	if vm.operationCounter+1 > vm.config.MaxOperations {
		return false
	}
	vm.operationCounter++
	return true
}

func (vm *VM) execPush(arg ast.Argument) (outcome, result.Status) {
	if len(vm.stack) >= vm.config.MaxStackDepth {
		return outcomeTerminate, result.ErrStackOverflow
	}
	vm.stack = append(vm.stack, argString(arg))
	return outcomeContinue, ""
}

func (vm *VM) execInvert() {
	for i, j := 0, len(vm.stack)-1; i < j; i, j = i+1, j-1 {
		vm.stack[i], vm.stack[j] = vm.stack[j], vm.stack[i]
	}
}

func (vm *VM) execBind(kArg, vArg ast.Argument) (outcome, result.Status) {
	key := argString(kArg)
	val := argString(vArg)

	if _, exists := vm.bindings[key]; !exists {
		if len(vm.bindings) >= vm.config.MaxBindings {
			return outcomeTerminate, result.ErrBindingsOverflow
		}
	}
	vm.bindings[key] = val
	return outcomeContinue, ""
}

func (vm *VM) execRelease(kArg ast.Argument) {
	delete(vm.bindings, argString(kArg))
}

func (vm *VM) execGate(condArg ast.Argument) (outcome, result.Status) {
	cond, err := condition.Parse(argString(condArg))
	if err != nil {
		return outcomeTerminate, result.ErrCondition
	}
	if condition.Eval(cond, vm) {
		return outcomeContinue, ""
	}
	return outcomeBreakBlock, ""
}

func (vm *VM) execWitness() {
	if !vm.config.TraceEnabled {
		return
	}
	snap := vm.takeSnapshot()
	vm.trace = append(vm.trace, result.TraceRecord{
		Phase:     vm.currentPhase,
		Operation: vm.operationCounter,
		Stack:     snap.stack,
		Bindings:  snap.bindings,
	})
}

// execSaturate repeats block until a fixed point, a GATE break, the
// iteration cap, or a run-time terminating status, per spec §4.5.
func (vm *VM) execSaturate(block []ast.Operation) (outcome, result.Status) {
	iteration := 0
	for iteration < vm.config.MaxSaturateIterations {
		before := vm.takeSnapshot()

		broke := false
		for _, inner := range block {
			oc, status := vm.dispatch(inner)
			switch oc {
			case outcomeBreakBlock:
				broke = true
			case outcomeHalt:
				return outcomeHalt, ""
			case outcomeTerminate:
				return outcomeTerminate, status
			}
			if broke {
				break
			}
		}
		if broke {
			return outcomeContinue, ""
		}

		after := vm.takeSnapshot()
		if snapshotsEqual(before, after) {
			return outcomeContinue, ""
		}
		iteration++
	}
	return outcomeTerminate, result.TermCycleLimit
}

func (vm *VM) buildResult(status result.Status) result.ExecutionResult {
	bindings := make(map[string]string, len(vm.bindings))
	for k, v := range vm.bindings {
		bindings[k] = v
	}
	stack := make([]string, len(vm.stack))
	copy(stack, vm.stack)

	invariant.Postcondition(len(stack) == len(vm.stack), "final stack copy must match live stack length")
	invariant.Postcondition(len(bindings) == len(vm.bindings), "final bindings copy must match live bindings count")
	invariant.InRange(vm.operationCounter, 0, vm.config.MaxOperations, "operations executed")

	return result.ExecutionResult{
		Status:             status,
		PhasesExecuted:     vm.phaseCounter,
		OperationsExecuted: vm.operationCounter,
		FinalState: result.FinalState{
			Stack:        stack,
			Bindings:     bindings,
			Depth:        len(stack),
			BindingCount: len(bindings),
		},
		Trace:        vm.trace,
		ErrorMessage: errorMessage(status),
	}
}

func errorMessage(status result.Status) string {
	switch status {
	case result.TermOpLimit:
		return "operation budget exhausted"
	case result.TermCycleLimit:
		return "SATURATE exceeded its iteration budget without reaching a fixed point"
	case result.ErrStackOverflow:
		return "stack depth budget exceeded"
	case result.ErrBindingsOverflow:
		return "bindings count budget exceeded"
	case result.ErrCondition:
		return "invalid GATE condition"
	default:
		return ""
	}
}

// argString coerces an Argument to its string form: a literal string as-is,
// a literal integer as base-10 digits, or a reference's identifier text.
// Only SATURATE may carry a Block argument, and the dispatch table never
// calls argString on one.
func argString(arg ast.Argument) string {
	switch arg.Kind {
	case ast.ArgLiteralString:
		return arg.Str
	case ast.ArgLiteralInt:
		return strconv.FormatInt(arg.Int, 10)
	case ast.ArgReference:
		return arg.Str
	default:
		invariant.Invariant(false, "argString called on a Block argument")
		return ""
	}
}
