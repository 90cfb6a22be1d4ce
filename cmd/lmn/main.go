// Command lmn is the command-line driver for the LMN virtual machine: it
// parses a source file, runs it to a terminating ExecutionResult, and
// reports that result as text or JSON.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lmn-vm/lmn/internal/ast"
	"github.com/lmn-vm/lmn/internal/config"
	"github.com/lmn-vm/lmn/internal/invariant"
	"github.com/lmn-vm/lmn/internal/parser"
	"github.com/lmn-vm/lmn/internal/result"
	"github.com/lmn-vm/lmn/internal/traceio"
	"github.com/lmn-vm/lmn/internal/vm"
)

// exitError carries the process exit code an error should produce, per
// spec.md §6: 1 for a parse failure or any other terminating run-time
// status (already reported by the caller), 2 for anything
// unexpected (I/O, config, internal errors - not yet reported anywhere).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitCode1 marks err as already reported and worth a plain exit(1).
func exitCode1(err error) error { return &exitError{code: 1, err: err} }

func main() {
	err := rootCmd().Execute()
	if err == nil {
		return
	}

	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}

	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(2)
}

// flagSet is the set of run/check flags, bound once and read by both verbs.
type flagSet struct {
	configPath string
	maxOps     int
	maxStack   int
	maxSat     int
	maxBind    int
	trace      bool
	traceOut   string
	jsonOut    bool
	dumpAST    bool
	watch      bool
	noColor    bool
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lmn",
		Short:         "Run and validate LMN programs",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(runCmd())
	root.AddCommand(checkCmd())
	return root
}

func bindFlags(cmd *cobra.Command, f *flagSet) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to a JSON config file overriding resource budgets")
	cmd.Flags().IntVar(&f.maxOps, "max-ops", 0, "override max_operations")
	cmd.Flags().IntVar(&f.maxStack, "max-stack", 0, "override max_stack_depth")
	cmd.Flags().IntVar(&f.maxSat, "max-saturate", 0, "override max_saturate_iterations")
	cmd.Flags().IntVar(&f.maxBind, "max-bindings", 0, "override max_bindings")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "enable WITNESS checkpoint tracing")
	cmd.Flags().StringVar(&f.traceOut, "trace-out", "", "write the run's result, with any --trace checkpoints, to this file in the LTRC binary format")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&f.dumpAST, "dump-ast", false, "print the parsed program tree instead of running it")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "re-run whenever the source file changes")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "disable colored status output")
}

func runCmd() *cobra.Command {
	f := &flagSet{}
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Parse and execute an LMN program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0], f)
		},
	}
	bindFlags(cmd, f)
	return cmd
}

func checkCmd() *cobra.Command {
	f := &flagSet{}
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Parse an LMN program without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkFile(args[0], f)
		},
	}
	cmd.Flags().BoolVar(&f.dumpAST, "dump-ast", false, "print the parsed program tree")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "disable colored status output")
	return cmd
}

func checkFile(path string, f *flagSet) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	prog, err := parser.Parse(string(src))
	if err != nil {
		printParseError(path, err, shouldUseColor(f.noColor))
		return exitCode1(err)
	}

	useColor := shouldUseColor(f.noColor)
	fmt.Println(colorize("OK", colorGreen, useColor))
	if f.dumpAST {
		dumpProgram(prog)
	}
	return nil
}

func runFile(path string, f *flagSet) error {
	if f.watch {
		return watchAndRun(path, f)
	}
	return runOnce(path, f)
}

func runOnce(path string, f *flagSet) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	prog, err := parser.Parse(string(src))
	if err != nil {
		printParseError(path, err, shouldUseColor(f.noColor))
		return exitCode1(err)
	}

	if f.dumpAST {
		dumpProgram(prog)
		return nil
	}

	cfg, err := resolveConfig(f)
	if err != nil {
		return err
	}

	res := vm.New(cfg).Run(prog)
	printResult(res, f)

	if f.traceOut != "" {
		if err := writeTraceFile(f.traceOut, res); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
	}

	if res.Status.Terminating() {
		return exitCode1(fmt.Errorf("execution ended with status %s", res.Status))
	}
	return nil
}

// writeTraceFile exports res to path in the traceio LTRC binary format, per
// SPEC_FULL §5. Safe to call whether or not --trace populated res.Trace -
// an untraced run still produces a valid, empty-trace document.
func writeTraceFile(path string, res result.ExecutionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := traceio.Write(f, res); err != nil {
		return err
	}
	return nil
}

// resolveConfig layers precedence lowest-to-highest: built-in defaults, a
// --config file, then individual --max-* flags.
func resolveConfig(f *flagSet) (vm.Config, error) {
	cfg := vm.DefaultConfig()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return vm.Config{}, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if f.maxOps > 0 {
		cfg.MaxOperations = f.maxOps
	}
	if f.maxStack > 0 {
		cfg.MaxStackDepth = f.maxStack
	}
	if f.maxSat > 0 {
		cfg.MaxSaturateIterations = f.maxSat
	}
	if f.maxBind > 0 {
		cfg.MaxBindings = f.maxBind
	}
	if f.trace {
		cfg.TraceEnabled = true
	}
	return cfg, nil
}

func printResult(res result.ExecutionResult, f *flagSet) {
	if f.jsonOut {
		out, err := res.JSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
			return
		}
		fmt.Println(string(out))
		return
	}

	useColor := shouldUseColor(f.noColor)
	statusColor := colorGreen
	if res.Status.Terminating() {
		statusColor = colorRed
	}
	fmt.Printf("%s  phases=%d operations=%d\n",
		colorize(string(res.Status), statusColor, useColor),
		res.PhasesExecuted, res.OperationsExecuted)
	fmt.Printf("stack=%v\n", res.FinalState.Stack)
	fmt.Printf("bindings=%v\n", res.FinalState.Bindings)
	if res.ErrorMessage != "" {
		fmt.Println(colorize(res.ErrorMessage, colorYellow, useColor))
	}
	for _, rec := range res.Trace {
		fmt.Printf("%s  phase=%s op=%d stack=%v bindings=%v\n",
			colorize("checkpoint", colorGray, useColor), rec.Phase, rec.Operation, rec.Stack, rec.Bindings)
	}
}

func printParseError(path string, err error, useColor bool) {
	if pe, ok := err.(*parser.ParseError); ok {
		fmt.Fprintf(os.Stderr, "%s %s:%d: %s\n", colorize("error:", colorRed, useColor), path, pe.Line, pe.Message)
		for _, s := range pe.Suggestions {
			fmt.Fprintf(os.Stderr, "  %s %s?\n", colorize("did you mean", colorYellow, useColor), s)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s: %v\n", colorize("error:", colorRed, useColor), path, err)
}

// dumpProgram prints the parsed program tree followed by its deterministic,
// content-addressed hash (BLAKE2b-256 over the canonical CBOR encoding) -
// the --dump-ast contract from SPEC_FULL §3/§4. Hashing a program that just
// parsed successfully cannot fail; any error here would mean ast.Program's
// own fields became unencodable, a bug in this binary, not bad input.
func dumpProgram(prog *ast.Program) {
	for _, phase := range prog.Phases {
		fmt.Printf("%s {\n", phase.Name)
		for _, op := range phase.Operations {
			fmt.Printf("  %s %v\n", op.Operator, dumpArgs(op.Arguments))
		}
		fmt.Println("}")
	}

	hash, err := prog.Hash()
	invariant.ExpectNoError(err, "hashing a successfully parsed program must not fail")
	fmt.Printf("hash=%x\n", hash)
}

func dumpArgs(args []ast.Argument) []string {
	out := make([]string, len(args))
	for i, a := range args {
		switch a.Kind {
		case ast.ArgLiteralString:
			out[i] = fmt.Sprintf("%q", a.Str)
		case ast.ArgLiteralInt:
			out[i] = fmt.Sprintf("%d", a.Int)
		case ast.ArgReference:
			out[i] = a.Str
		case ast.ArgBlock:
			out[i] = fmt.Sprintf("<block of %d ops>", len(a.Block))
		}
	}
	return out
}
