// Package parser turns an LMN token stream into an immutable *ast.Program.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lmn-vm/lmn/internal/ast"
	"github.com/lmn-vm/lmn/internal/lexer"
	"github.com/lmn-vm/lmn/internal/token"
)

// Parse tokenizes and parses src, returning the program tree or the first
// *ParseError encountered. Parsing always aborts before any execution.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		if lexErr, ok := err.(*lexer.Error); ok {
			return nil, &ParseError{Type: ErrUnexpectedToken, Message: lexErr.Message, Line: lexErr.Line}
		}
		return nil, &ParseError{Type: ErrUnexpectedToken, Message: err.Error()}
	}

	p := &parser{toks: toks}
	return p.parseProgram()
}

type parser struct {
	toks []token.Token
	pos  int
}

func (p *parser) peek() token.Token { return p.toks[p.pos] }

func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *parser) atEnd() bool { return p.peek().Kind == token.EOF }

func (p *parser) parseProgram() (*ast.Program, error) {
	var phases []ast.Phase
	for !p.atEnd() {
		phase, err := p.parsePhase()
		if err != nil {
			return nil, err
		}
		phases = append(phases, phase)
	}
	if len(phases) == 0 {
		return nil, &ParseError{Type: ErrEmptyProgram, Message: "program must declare at least one phase", Line: 1}
	}
	return &ast.Program{Phases: phases}, nil
}

func (p *parser) parsePhase() (ast.Phase, error) {
	nameTok := p.peek()
	if nameTok.Kind != token.KEYWORD {
		return ast.Phase{}, &ParseError{
			Type:    ErrUnexpectedToken,
			Message: "expected a phase name (uppercase identifier)",
			Line:    nameTok.Line,
		}
	}
	p.advance()

	if p.peek().Kind != token.LBRACE {
		return ast.Phase{}, &ParseError{Type: ErrUnclosedBlock, Message: "expected '{' after phase name " + nameTok.Lexeme, Line: p.peek().Line}
	}
	p.advance()

	var ops []ast.Operation
	for {
		if p.peek().Kind == token.RBRACE {
			p.advance()
			break
		}
		if p.atEnd() {
			return ast.Phase{}, &ParseError{Type: ErrUnclosedBlock, Message: "unclosed phase block " + nameTok.Lexeme, Line: nameTok.Line}
		}
		op, err := p.parseOperation()
		if err != nil {
			return ast.Phase{}, err
		}
		ops = append(ops, op)
	}

	if len(ops) == 0 {
		return ast.Phase{}, &ParseError{Type: ErrEmptyPhase, Message: "phase " + nameTok.Lexeme + " has no operations", Line: nameTok.Line}
	}
	return ast.Phase{Name: nameTok.Lexeme, Operations: ops}, nil
}

func (p *parser) parseOperation() (ast.Operation, error) {
	opTok := p.peek()
	if opTok.Kind != token.KEYWORD {
		return ast.Operation{}, &ParseError{Type: ErrUnexpectedToken, Message: "expected an operator", Line: opTok.Line}
	}
	p.advance()

	arity, known := token.Arity[opTok.Lexeme]
	if !known {
		return ast.Operation{}, &ParseError{
			Type:        ErrUnknownOperator,
			Message:     "unknown operator " + opTok.Lexeme,
			Line:        opTok.Line,
			Suggestions: suggest(opTok.Lexeme, token.Operators, 3),
		}
	}

	switch opTok.Lexeme {
	case token.SATURATE:
		block, err := p.parseBlock()
		if err != nil {
			return ast.Operation{}, err
		}
		return ast.Operation{Operator: ast.OpSaturate, Arguments: []ast.Argument{ast.BlockArg(block)}, SourceLine: opTok.Line}, nil

	case token.GATE:
		arg, err := p.parseGateArgument()
		if err != nil {
			return ast.Operation{}, err
		}
		return ast.Operation{Operator: ast.OpGate, Arguments: []ast.Argument{arg}, SourceLine: opTok.Line}, nil

	default:
		args := make([]ast.Argument, 0, arity)
		for i := 0; i < arity; i++ {
			if t := p.peek(); t.Kind == token.KEYWORD || t.Kind == token.RBRACE || t.Kind == token.EOF {
				return ast.Operation{}, &ParseError{
					Type:    ErrWrongArity,
					Message: fmt.Sprintf("%s expects %d argument(s), got %d", opTok.Lexeme, arity, i),
					Line:    t.Line,
				}
			}
			arg, err := p.parseArgument()
			if err != nil {
				return ast.Operation{}, err
			}
			args = append(args, arg)
		}
		return ast.Operation{Operator: ast.OpKind(opTok.Lexeme), Arguments: args, SourceLine: opTok.Line}, nil
	}
}

// parseBlock consumes "'{' Operation* '}'" for SATURATE. An empty block is
// legal - it parses to an empty slice and converges on its first iteration.
func (p *parser) parseBlock() ([]ast.Operation, error) {
	if p.peek().Kind != token.LBRACE {
		return nil, &ParseError{Type: ErrUnclosedBlock, Message: "expected '{' to open SATURATE block", Line: p.peek().Line}
	}
	openLine := p.peek().Line
	p.advance()

	var ops []ast.Operation
	for {
		if p.peek().Kind == token.RBRACE {
			p.advance()
			return ops, nil
		}
		if p.atEnd() {
			return nil, &ParseError{Type: ErrUnclosedBlock, Message: "unclosed SATURATE block", Line: openLine}
		}
		op, err := p.parseOperation()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
}

// parseArgument consumes one generic PUSH/BIND/RELEASE argument: a literal
// string, a literal integer, or a bare identifier reference.
func (p *parser) parseArgument() (ast.Argument, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.STRING:
		p.advance()
		return ast.Literal(tok.Lexeme), nil
	case token.NUMBER:
		p.advance()
		n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return ast.Argument{}, &ParseError{Type: ErrBadLiteral, Message: "integer literal out of range: " + tok.Lexeme, Line: tok.Line}
		}
		return ast.LiteralInt(n), nil
	case token.IDENT:
		p.advance()
		return ast.Reference(tok.Lexeme), nil
	default:
		return ast.Argument{}, &ParseError{Type: ErrUnexpectedToken, Message: "expected a string, number, or identifier argument", Line: tok.Line}
	}
}

// parseGateArgument consumes GATE's single argument. Because the condition
// grammar spans more than one token ("depth < 5", "bound k"), it is handled
// separately from the generic Argument rule: an IDENT "argument path",
// optionally extended by a following IDENT ("bound foo") or a SYMBOL led
// fragment with its own optional operand ("< 5"), joined with a single
// space into one canonical Reference string. See spec §9 Open Questions.
func (p *parser) parseGateArgument() (ast.Argument, error) {
	head := p.peek()
	if head.Kind != token.IDENT {
		return ast.Argument{}, &ParseError{Type: ErrUnexpectedToken, Message: "expected a GATE condition", Line: head.Line}
	}
	p.advance()

	parts := []string{head.Lexeme}

	switch next := p.peek(); next.Kind {
	case token.IDENT:
		p.advance()
		parts = append(parts, next.Lexeme)
	case token.SYMBOL:
		p.advance()
		parts = append(parts, next.Lexeme)
		if after := p.peek(); after.Kind == token.NUMBER || after.Kind == token.IDENT {
			p.advance()
			parts = append(parts, after.Lexeme)
		}
	}

	return ast.Reference(strings.Join(parts, " ")), nil
}
