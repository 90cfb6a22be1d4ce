package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/lmn-vm/lmn/internal/ast"
)

func TestParseSimpleProgram(t *testing.T) {
	prog, err := Parse(`BEGIN { PUSH "a" PUSH "b" INVERT HALT }`)
	require.NoError(t, err)
	require.Len(t, prog.Phases, 1)

	phase := prog.Phases[0]
	require.Equal(t, "BEGIN", phase.Name)
	require.Len(t, phase.Operations, 4)
	require.Equal(t, ast.OpPush, phase.Operations[0].Operator)
	require.Equal(t, ast.Literal("a"), phase.Operations[0].Arguments[0])
	require.Equal(t, ast.OpHalt, phase.Operations[3].Operator)
}

func TestParseMultiplePhases(t *testing.T) {
	prog, err := Parse(`A { HALT } B { HALT }`)
	require.NoError(t, err)
	require.Len(t, prog.Phases, 2)
	require.Equal(t, "A", prog.Phases[0].Name)
	require.Equal(t, "B", prog.Phases[1].Name)
}

func TestParseSaturateBlock(t *testing.T) {
	prog, err := Parse(`T { SATURATE { PUSH "x" GATE depth < 5 } HALT }`)
	require.NoError(t, err)

	sat := prog.Phases[0].Operations[0]
	require.Equal(t, ast.OpSaturate, sat.Operator)
	require.Len(t, sat.Arguments, 1)
	require.Equal(t, ast.ArgBlock, sat.Arguments[0].Kind)

	block := sat.Arguments[0].Block
	require.Len(t, block, 2)
	require.Equal(t, ast.OpGate, block[1].Operator)
	require.Equal(t, ast.Reference("depth < 5"), block[1].Arguments[0])
}

func TestParseEmptySaturateBlock(t *testing.T) {
	prog, err := Parse(`T { SATURATE { } }`)
	require.NoError(t, err)
	require.Empty(t, prog.Phases[0].Operations[0].Arguments[0].Block)
}

func TestParseGateBoundUnbound(t *testing.T) {
	prog, err := Parse(`T { SATURATE { GATE unbound done BIND "done" "yes" } HALT }`)
	require.NoError(t, err)
	gate := prog.Phases[0].Operations[0].Arguments[0].Block[0]
	require.Equal(t, ast.Reference("unbound done"), gate.Arguments[0])
}

func TestParseBindTwoArgs(t *testing.T) {
	prog, err := Parse(`T { BIND "k" "v" HALT }`)
	require.NoError(t, err)
	bind := prog.Phases[0].Operations[0]
	require.Len(t, bind.Arguments, 2)
	require.Equal(t, ast.Literal("k"), bind.Arguments[0])
	require.Equal(t, ast.Literal("v"), bind.Arguments[1])
}

func TestParseNumberLiteral(t *testing.T) {
	prog, err := Parse(`T { PUSH 42 HALT }`)
	require.NoError(t, err)
	require.Equal(t, ast.LiteralInt(42), prog.Phases[0].Operations[0].Arguments[0])
}

func TestParseEmptyProgramFails(t *testing.T) {
	_, err := Parse(``)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrEmptyProgram, pe.Type)
}

func TestParseEmptyPhaseFails(t *testing.T) {
	_, err := Parse(`T { }`)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrEmptyPhase, pe.Type)
}

func TestParseUnclosedBlockFails(t *testing.T) {
	_, err := Parse(`T { HALT`)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrUnclosedBlock, pe.Type)
}

func TestParseUnknownOperatorSuggestsClosest(t *testing.T) {
	_, err := Parse(`T { PUSF "x" }`)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrUnknownOperator, pe.Type)
	require.Contains(t, pe.Suggestions, "PUSH")
}

func TestParseWrongArityFails(t *testing.T) {
	_, err := Parse(`T { BIND "k" }`)
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrWrongArity, pe.Type)
}

func TestParseWrongArityAtEndOfPhaseFails(t *testing.T) {
	_, err := Parse(`T { PUSH "a" BIND "k" }`)
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ErrWrongArity, pe.Type)
}

func TestParseProgramShapeMatchesExpectedTree(t *testing.T) {
	prog, err := Parse(`T { PUSH "a" BIND "k" "v" HALT }`)
	require.NoError(t, err)

	want := &ast.Program{
		Phases: []ast.Phase{
			{
				Name: "T",
				Operations: []ast.Operation{
					{Operator: ast.OpPush, Arguments: []ast.Argument{ast.Literal("a")}, SourceLine: 1},
					{Operator: ast.OpBind, Arguments: []ast.Argument{ast.Literal("k"), ast.Literal("v")}, SourceLine: 1},
					{Operator: ast.OpHalt, Arguments: []ast.Argument{}, SourceLine: 1},
				},
			},
		},
	}

	if diff := cmp.Diff(want, prog); diff != "" {
		t.Errorf("parsed program mismatch (-want +got):\n%s", diff)
	}
}
