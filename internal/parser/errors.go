package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ErrorType categorizes a ParseError for callers that want to branch on it
// without string-matching the message.
type ErrorType int

const (
	ErrUnexpectedToken ErrorType = iota
	ErrUnknownOperator
	ErrWrongArity
	ErrUnclosedBlock
	ErrEmptyPhase
	ErrEmptyProgram
	ErrBadCondition
	ErrBadLiteral
)

func (e ErrorType) String() string {
	switch e {
	case ErrUnexpectedToken:
		return "unexpected token"
	case ErrUnknownOperator:
		return "unknown operator"
	case ErrWrongArity:
		return "wrong arity"
	case ErrUnclosedBlock:
		return "unclosed block"
	case ErrEmptyPhase:
		return "empty phase"
	case ErrEmptyProgram:
		return "empty program"
	case ErrBadCondition:
		return "bad condition"
	case ErrBadLiteral:
		return "bad literal"
	default:
		return "parse error"
	}
}

// ParseError reports a malformed program. It always carries the 1-based
// source line where the problem was detected; Suggestions, when non-empty,
// are fuzzy-ranked candidates for what the author probably meant.
type ParseError struct {
	Type        ErrorType
	Message     string
	Line        int
	Suggestions []string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "line %d: %s: %s", e.Line, e.Type, e.Message)
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

// suggest returns up to maxSuggestions fuzzy-ranked candidates for target,
// closest match first. Used to annotate unknown-operator errors, mirroring
// how the corpus's planner ranks decorator name suggestions. A candidate
// qualifies if target is a case-insensitive subsequence of it, or if it is
// within edit distance 2 of target (so "PUSF" still suggests "PUSH").
func suggest(target string, candidates []string, maxSuggestions int) []string {
	ranks := fuzzy.RankFindFold(target, candidates)
	matched := make(map[string]bool, len(ranks))
	for _, r := range ranks {
		matched[r.Target] = true
	}
	for i, c := range candidates {
		if matched[c] {
			continue
		}
		if d := fuzzy.LevenshteinDistance(strings.ToLower(target), strings.ToLower(c)); d <= 2 {
			ranks = append(ranks, fuzzy.Rank{Source: target, Target: c, Distance: d, OriginalIndex: i})
		}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].Distance < ranks[j].Distance })

	out := make([]string, 0, maxSuggestions)
	for _, r := range ranks {
		if len(out) >= maxSuggestions {
			break
		}
		out = append(out, r.Target)
	}
	return out
}
