// Package ast defines the immutable program tree produced by the parser and
// consumed by the VM: phases, operations, and arguments.
package ast

import (
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/lmn-vm/lmn/internal/token"
)

// OpKind identifies an operator. Arity is fixed per kind; see token.Arity.
type OpKind string

const (
	OpPush     OpKind = token.PUSH
	OpInvert   OpKind = token.INVERT
	OpBind     OpKind = token.BIND
	OpRelease  OpKind = token.RELEASE
	OpGate     OpKind = token.GATE
	OpSaturate OpKind = token.SATURATE
	OpWitness  OpKind = token.WITNESS
	OpHalt     OpKind = token.HALT
)

// ArgKind tags which alternative an Argument holds. Only ArgBlock carries a
// nested operation list, and only SATURATE's sole argument may be ArgBlock -
// the parser enforces that, not this type.
type ArgKind uint8

const (
	ArgLiteralString ArgKind = iota
	ArgLiteralInt
	ArgReference
	ArgBlock
)

// Argument is the tagged union of PUSH/BIND/RELEASE/GATE operands and the
// SATURATE block body.
type Argument struct {
	Kind ArgKind

	// Str holds the literal string value (ArgLiteralString) or the
	// reference/condition identifier (ArgReference).
	Str string `cbor:",omitempty"`

	// Int holds the literal integer value (ArgLiteralInt).
	Int int64 `cbor:",omitempty"`

	// Block holds the operation sequence (ArgBlock only).
	Block []Operation `cbor:",omitempty"`
}

// Literal builds a string-literal Argument.
func Literal(s string) Argument { return Argument{Kind: ArgLiteralString, Str: s} }

// LiteralInt builds an integer-literal Argument.
func LiteralInt(n int64) Argument { return Argument{Kind: ArgLiteralInt, Int: n} }

// Reference builds an identifier/condition Argument.
func Reference(s string) Argument { return Argument{Kind: ArgReference, Str: s} }

// BlockArg builds a SATURATE block-body Argument.
func BlockArg(ops []Operation) Argument { return Argument{Kind: ArgBlock, Block: ops} }

// Operation is one dispatched instruction: an operator plus its fixed-arity
// argument list, and the source line it was parsed from (for diagnostics).
type Operation struct {
	Operator   OpKind
	Arguments  []Argument
	SourceLine int `cbor:"-"`
}

// Phase is a named, non-empty, ordered group of operations.
type Phase struct {
	Name       string
	Operations []Operation
}

// Program is the immutable tree handed to the VM. It holds no mutable state
// and may be shared read-only across concurrently executing VM instances.
type Program struct {
	Phases []Phase
}

// CanonicalEncode returns a deterministic CBOR encoding of the program,
// suitable for hashing. Field order is fixed by the struct definitions
// above, so no separate canonicalization pass is needed before encoding.
func (p *Program) CanonicalEncode() ([]byte, error) {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return mode.Marshal(p)
}

// Hash returns the BLAKE2b-256 digest of the program's canonical encoding.
// Two programs with identical operator/argument/phase structure hash
// identically regardless of formatting or comments in their source text.
func (p *Program) Hash() ([32]byte, error) {
	enc, err := p.CanonicalEncode()
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(enc), nil
}
