package phrase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Syntax {
	t.Helper()
	syn, err := Parse(src)
	require.NoError(t, err)
	require.NotNil(t, syn)
	return syn
}

func allKnown(name string) bool { return false }

func TestParseSimpleWeightedChoice(t *testing.T) {
	syn := mustParse(t, "main = a:1 | b:3\n")
	require.NoError(t, syn.Bind(allKnown, true))

	rule, ok := syn.Rule("main")
	require.True(t, ok)
	require.Len(t, rule.Alternatives, 2)
	assert.Equal(t, 1.0, rule.Alternatives[0].weight)
	assert.Equal(t, 3.0, rule.Alternatives[1].weight)
	assert.Equal(t, 4.0, rule.TotalWeight())
	assert.Equal(t, uint64(2), rule.Combinations())
}

func TestEqualizeMarksOverrideDefaultWeight(t *testing.T) {
	// "a" and "b" have default weight 1 each; "longer text" also defaults to
	// weight 1 by alternative count, but is marked "|=" so its contribution
	// is raised to match the largest non-explicit sibling.
	syn := mustParse(t, "main = a | b | longer bit of text here\n")
	require.NoError(t, syn.Bind(allKnown, true))
	rule, _ := syn.Rule("main")
	for _, alt := range rule.Alternatives {
		assert.Equal(t, 1.0, alt.weight)
	}

	syn2 := mustParse(t, "main = a:5 |= solo\n")
	require.NoError(t, syn2.Bind(allKnown, true))
	rule2, _ := syn2.Rule("main")
	// solo is the only non-explicit alternative, so it equalizes to its own
	// raw contribution (1), not to the explicitly weighted sibling.
	assert.Equal(t, 5.0, rule2.Alternatives[0].weight)
	assert.Equal(t, 1.0, rule2.Alternatives[1].weight)
}

func TestEqualizeHonoredWhenEqualizeChanceIsFalse(t *testing.T) {
	// helper's raw contribution is 10 (9 explicit + 1 default), regardless
	// of equalizeChance. equalizeChance(false) flattens the two plain
	// alternatives' own weight to 1 each, but "|=" must still raise solo to
	// the raw combinatorial max among its non-explicit siblings (10), not
	// to the flattened default of 1.
	syn := mustParse(t, "helper = one:9 | two\nmain = {helper} | mid |= solo\n")
	require.NoError(t, syn.Bind(allKnown, false))

	rule, ok := syn.Rule("main")
	require.True(t, ok)
	require.Len(t, rule.Alternatives, 3)
	assert.Equal(t, 1.0, rule.Alternatives[0].weight)
	assert.Equal(t, 1.0, rule.Alternatives[1].weight)
	assert.Equal(t, 10.0, rule.Alternatives[2].weight)
}

func TestBindRejectsNonFiniteComputedWeight(t *testing.T) {
	// a single explicit weight of 1e150 is valid on its own; squaring it
	// twice through nested expansions overflows float64 to +Inf, which Bind
	// must reject rather than silently cache an infinite rule weight.
	big := "1" + strings.Repeat("0", 150)
	src := "a = x:" + big + "\nb = {a}{a}\nc = {b}{b}\n"
	syn := mustParse(t, src)

	err := syn.Bind(allKnown, true)
	require.Error(t, err)
	var werr *WeightError
	assert.ErrorAs(t, err, &werr)
}

func TestWhitespaceOnlyRunBeforeSeparatorIsNotAnError(t *testing.T) {
	// the space between "{y}" and "|" scans as a whitespace-only literal run
	// that trims away to nothing; that must not be mistaken for a stuck
	// scanner sitting on an unexpected rune.
	syn := mustParse(t, "main = {x}{y} | z\n")
	require.NoError(t, syn.Bind(allKnown, true))
	rule, ok := syn.Rule("main")
	require.True(t, ok)
	require.Len(t, rule.Alternatives, 2)
	require.Len(t, rule.Alternatives[0].Parts, 2)
	require.Len(t, rule.Alternatives[1].Parts, 1)
}

func TestWhitespaceOnlyRunBeforeGsubIsNotAnError(t *testing.T) {
	syn := mustParse(t, "main = a {x} ~/a @/an /\n")
	require.NoError(t, syn.Bind(allKnown, true))
	rule, ok := syn.Rule("main")
	require.True(t, ok)
	require.Len(t, rule.Alternatives, 1)
	require.Len(t, rule.Alternatives[0].Gsubs, 1)
}

func TestGsubAppliesToExpandedText(t *testing.T) {
	syn := mustParse(t, "main = hello world ~/world/there/\n")
	require.NoError(t, syn.Bind(allKnown, true))
	out, err := Expand(syn, "main", nil, DefaultRNG(1), 0)
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestRuleLevelGsubAppliesAfterEveryAlternative(t *testing.T) {
	syn := mustParse(t, "main = cat | dog\n~~/$/!/\n")
	require.NoError(t, syn.Bind(allKnown, true))
	for i := 0; i < 10; i++ {
		out, err := Expand(syn, "main", nil, DefaultRNG(int64(i)), 0)
		require.NoError(t, err)
		assert.True(t, out == "cat!" || out == "dog!", out)
	}
}

func TestExternalContextShadowsSyntaxRule(t *testing.T) {
	syn := mustParse(t, "main = hello {name}\nname = nobody\n")
	known := func(n string) bool { return n == "name" }
	require.NoError(t, syn.Bind(known, true))

	ctx := func(n string) (string, bool) {
		if n == "name" {
			return "Ellery", true
		}
		return "", false
	}
	out, err := Expand(syn, "main", ctx, DefaultRNG(1), 0)
	require.NoError(t, err)
	assert.Equal(t, "hello Ellery", out)
}

func TestCyclicReferenceIsDetectedAtBind(t *testing.T) {
	syn := mustParse(t, "a = {b}\nb = {a}\n")
	err := syn.Bind(allKnown, true)
	require.Error(t, err)
	var cycleErr *CyclicReferenceError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestInlineAnonymousRuleExpands(t *testing.T) {
	syn := mustParse(t, "main = a {= x | y | z} b\n")
	require.NoError(t, syn.Bind(allKnown, true))
	out, err := Expand(syn, "main", nil, DefaultRNG(7), 0)
	require.NoError(t, err)
	assert.Contains(t, []string{"a x b", "a y b", "a z b"}, out)
}

func TestUnknownReferenceErrorsAtGenerate(t *testing.T) {
	syn := mustParse(t, "main = {missing}\n")
	require.NoError(t, syn.Bind(allKnown, true))
	_, err := Expand(syn, "main", nil, DefaultRNG(1), 0)
	require.Error(t, err)
	var unknown *UnknownReferenceError
	assert.ErrorAs(t, err, &unknown)
}

func TestCombinationsIgnoresWeightOverrides(t *testing.T) {
	// Explicit weights skew selection probability but never change the
	// count of structurally distinct outputs.
	syn := mustParse(t, "main = a:1 | b:99\n")
	require.NoError(t, syn.Bind(allKnown, true))
	rule, _ := syn.Rule("main")
	assert.Equal(t, uint64(2), rule.Combinations())
	assert.Equal(t, 100.0, rule.TotalWeight())
}

func TestLocalNonterminalIsFlagged(t *testing.T) {
	syn := mustParse(t, "main = {_helper}\n_helper = quiet\n")
	assert.True(t, syn.IsLocal("_helper"))
	assert.False(t, syn.IsLocal("main"))
}

func TestParseErrorAggregatesMultipleIssues(t *testing.T) {
	_, err := Parse("main = a\nmain = b\nx = y:abc\n")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Len(t, perr.Issues, 2)
	assert.Equal(t, KindDuplicateAssign, perr.Issues[0].Kind)
	assert.Equal(t, KindBadWeight, perr.Issues[1].Kind)
}

func TestQuotedLiteralPreservesTrailingSpaceAndColon(t *testing.T) {
	syn := mustParse(t, `main = "score: 5 "` + "\n")
	require.NoError(t, syn.Bind(allKnown, true))
	out, err := Expand(syn, "main", nil, DefaultRNG(1), 0)
	require.NoError(t, err)
	assert.Equal(t, "score: 5 ", out)
}

func TestBraceEscapesProduceLiteralBraces(t *testing.T) {
	syn := mustParse(t, "main = {(}x{)}\n")
	require.NoError(t, syn.Bind(allKnown, true))
	out, err := Expand(syn, "main", nil, DefaultRNG(1), 0)
	require.NoError(t, err)
	assert.Equal(t, "{x}", out)
}
