package condition

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeState struct {
	depth   int
	binding map[string]bool
}

func (f fakeState) Depth() int { return f.depth }
func (f fakeState) Bound(key string) bool {
	return f.binding[key]
}

func TestParseDepthCmp(t *testing.T) {
	c, err := Parse("depth < 5")
	require.NoError(t, err)
	require.Equal(t, KindDepthCmp, c.Kind)
	require.Equal(t, LT, c.DepthOp)
	require.Equal(t, 5, c.DepthN)
}

func TestParseExtraWhitespace(t *testing.T) {
	c, err := Parse("  depth   ==   10  ")
	require.NoError(t, err)
	require.Equal(t, EQ, c.DepthOp)
	require.Equal(t, 10, c.DepthN)
}

func TestParseBoundUnbound(t *testing.T) {
	c, err := Parse("bound done")
	require.NoError(t, err)
	require.Equal(t, KindBound, c.Kind)
	require.Equal(t, "done", c.Key)

	c, err = Parse("unbound done")
	require.NoError(t, err)
	require.Equal(t, KindUnbound, c.Kind)
}

func TestParseInvalid(t *testing.T) {
	cases := []string{"depth <= 5", "depth < -1", "depth < abc", "bound", "nonsense"}
	for _, raw := range cases {
		_, err := Parse(raw)
		require.Error(t, err, raw)
	}
}

func TestParseUnknownVerbSuggestsClosest(t *testing.T) {
	_, err := Parse("boun k")
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Contains(t, ce.Reason, "bound")
}

func TestEval(t *testing.T) {
	st := fakeState{depth: 3, binding: map[string]bool{"k": true}}

	lt, _ := Parse("depth < 5")
	require.True(t, Eval(lt, st))

	gt, _ := Parse("depth > 5")
	require.False(t, Eval(gt, st))

	eq, _ := Parse("depth == 3")
	require.True(t, Eval(eq, st))

	bound, _ := Parse("bound k")
	require.True(t, Eval(bound, st))

	unbound, _ := Parse("unbound missing")
	require.True(t, Eval(unbound, st))
}
