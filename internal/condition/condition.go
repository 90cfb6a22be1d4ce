// Package condition evaluates GATE conditions against VM state. The parser
// keeps a GATE's condition as a single canonical string (see
// internal/parser's parseGateArgument); Parse turns that string into a small
// Condition value, and Eval is a pure function of that value and the
// current state, keeping the evaluator itself context-free.
package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/lmn-vm/lmn/internal/token"
)

// Op is a depth-comparison operator.
type Op int

const (
	LT Op = iota
	GT
	EQ
)

func (o Op) String() string {
	switch o {
	case LT:
		return "<"
	case GT:
		return ">"
	case EQ:
		return "=="
	default:
		return "?"
	}
}

// Kind tags which condition shape was parsed.
type Kind int

const (
	KindDepthCmp Kind = iota
	KindBound
	KindUnbound
)

// Condition is the parsed form of a GATE argument.
type Condition struct {
	Kind Kind

	// DepthOp/DepthN are set when Kind == KindDepthCmp.
	DepthOp Op
	DepthN  int

	// Key is set when Kind == KindBound or KindUnbound.
	Key string
}

// Error reports a condition string with no recognized shape.
type Error struct {
	Condition string
	Reason    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid condition %q: %s", e.Condition, e.Reason)
}

// State is the minimal view of VM state a condition needs.
type State interface {
	Depth() int
	Bound(key string) bool
}

// Parse parses a whitespace-trimmed condition string into a Condition.
// Runs of whitespace between tokens are tolerated; anything else - an
// unrecognized verb, a bad depth operator, or a non-integer right-hand
// side - fails with *Error.
func Parse(raw string) (Condition, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Condition{}, &Error{Condition: raw, Reason: "empty condition"}
	}

	switch fields[0] {
	case "depth":
		if len(fields) != 3 {
			return Condition{}, &Error{Condition: raw, Reason: "expected \"depth OP N\""}
		}
		op, ok := parseOp(fields[1])
		if !ok {
			return Condition{}, &Error{Condition: raw, Reason: fmt.Sprintf("unknown operator %q", fields[1])}
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil || n < 0 {
			return Condition{}, &Error{Condition: raw, Reason: fmt.Sprintf("expected a non-negative integer, got %q", fields[2])}
		}
		return Condition{Kind: KindDepthCmp, DepthOp: op, DepthN: n}, nil

	case "bound":
		if len(fields) != 2 {
			return Condition{}, &Error{Condition: raw, Reason: "expected \"bound K\""}
		}
		return Condition{Kind: KindBound, Key: fields[1]}, nil

	case "unbound":
		if len(fields) != 2 {
			return Condition{}, &Error{Condition: raw, Reason: "expected \"unbound K\""}
		}
		return Condition{Kind: KindUnbound, Key: fields[1]}, nil

	default:
		reason := fmt.Sprintf("unknown condition verb %q", fields[0])
		if matches := fuzzy.RankFindFold(fields[0], token.ConditionKeywords); len(matches) > 0 {
			reason += fmt.Sprintf(" (did you mean %q?)", matches[0].Target)
		}
		return Condition{}, &Error{Condition: raw, Reason: reason}
	}
}

func parseOp(s string) (Op, bool) {
	switch s {
	case "<":
		return LT, true
	case ">":
		return GT, true
	case "==":
		return EQ, true
	default:
		return 0, false
	}
}

// Eval evaluates a parsed Condition against the current state.
func Eval(c Condition, s State) bool {
	switch c.Kind {
	case KindDepthCmp:
		d := s.Depth()
		switch c.DepthOp {
		case LT:
			return d < c.DepthN
		case GT:
			return d > c.DepthN
		case EQ:
			return d == c.DepthN
		}
		return false
	case KindBound:
		return s.Bound(c.Key)
	case KindUnbound:
		return !s.Bound(c.Key)
	default:
		return false
	}
}
