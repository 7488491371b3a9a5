package phrasegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorLifecycleTransitions(t *testing.T) {
	g := NewGenerator()
	assert.Equal(t, StateEmpty, g.State())

	syn, err := Parse("main = a | b\n")
	require.NoError(t, err)
	g.Add("", syn)
	assert.Equal(t, StateConfigured, g.State())

	out, err := g.Generate("main", nil)
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, out)
	assert.Equal(t, StateGenerating, g.State())

	g.EqualizeChance(false)
	assert.Equal(t, StateModified, g.State())
}

func TestGeneratorScopedAddAvoidsNameCollision(t *testing.T) {
	ui, err := Parse("greeting = hi\n")
	require.NoError(t, err)
	story, err := Parse("greeting = once upon a time\n")
	require.NoError(t, err)

	g := NewGenerator().Add("ui", ui).Add("story", story)
	out, err := g.Generate("ui.greeting", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	out, err = g.Generate("story.greeting", nil)
	require.NoError(t, err)
	assert.Equal(t, "once upon a time", out)
}

func TestGeneratorLaterAddShadowsEarlierOnClash(t *testing.T) {
	first, err := Parse("main = first\n")
	require.NoError(t, err)
	second, err := Parse("main = second\n")
	require.NoError(t, err)

	g := NewGenerator().Add("", first).Add("", second)
	out, err := g.Generate("main", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", out)
}

func TestGeneratorLocalNonterminalsStayIsolatedAcrossAdds(t *testing.T) {
	a, err := Parse("main = {_helper}\n_helper = from a\n")
	require.NoError(t, err)
	b, err := Parse("other = {_helper}\n_helper = from b\n")
	require.NoError(t, err)

	g := NewGenerator().Add("", a).Add("", b)
	out, err := g.Generate("main", nil)
	require.NoError(t, err)
	assert.Equal(t, "from a", out)

	out, err = g.Generate("other", nil)
	require.NoError(t, err)
	assert.Equal(t, "from b", out)
}

func TestGeneratorWeightedChoiceDistribution(t *testing.T) {
	syn, err := Parse("main = a:1 | b:3\n")
	require.NoError(t, err)
	g := NewGenerator().Add("", syn).WithRNG(DefaultRNG(42))

	const n = 100000
	var bCount int
	for i := 0; i < n; i++ {
		out, err := g.Generate("main", nil)
		require.NoError(t, err)
		if out == "b" {
			bCount++
		}
	}
	ratio := float64(bCount) / float64(n)
	assert.InDelta(t, 0.75, ratio, 0.03)
}

func TestGeneratorExternalContextShadowing(t *testing.T) {
	syn, err := Parse("main = You are {ECONOMICAL_SITUATION}.\n")
	require.NoError(t, err)
	g := NewGenerator().Add("", syn)

	out, err := g.Generate("main", ExternalContext{"ECONOMICAL_SITUATION": "poor"})
	require.NoError(t, err)
	assert.Equal(t, "You are poor.", out)
}

func TestGeneratorCombinationsAndWeight(t *testing.T) {
	syn, err := Parse("X = a | b\nY = c | d | e\nmain = {X}{Y} | z\n")
	require.NoError(t, err)
	g := NewGenerator().Add("", syn)

	comb, err := g.Combinations("main", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), comb)

	w, err := g.Weight("main", nil)
	require.NoError(t, err)
	assert.Equal(t, 7.0, w)
}

func TestGeneratorEqualizeChanceFalseFlattensAlternativeOdds(t *testing.T) {
	syn, err := Parse("X = a | b\nY = c | d | e\nmain = {X}{Y} | z\n")
	require.NoError(t, err)
	g := NewGenerator().Add("", syn).EqualizeChance(false).WithRNG(DefaultRNG(1))

	w, err := g.Weight("main", nil)
	require.NoError(t, err)
	// each of main's two alternatives now defaults to flat weight 1,
	// regardless of how many outputs "{X}{Y}" can itself produce.
	assert.Equal(t, 2.0, w)
}

func TestGeneratorUnknownStartErrors(t *testing.T) {
	syn, err := Parse("main = a\n")
	require.NoError(t, err)
	g := NewGenerator().Add("", syn)

	_, err = g.Generate("nope", nil)
	require.Error(t, err)
	var unknownStart *UnknownStartError
	assert.ErrorAs(t, err, &unknownStart)
}
