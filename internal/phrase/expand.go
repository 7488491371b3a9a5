package phrase

import "strings"

// ContextLookup resolves a name against an external context supplied at
// generation time. A name it resolves shadows a same-named rule in the
// Syntax: the looked-up value is substituted verbatim, with no further
// expansion or gsub processing applied to it.
type ContextLookup func(name string) (string, bool)

// DefaultMaxDepth bounds recursive expansion when neither the caller nor a
// Generator overrides it.
const DefaultMaxDepth = 100

// Expand produces one generated string by expanding start within syn. ctx
// may be nil. rng drives every weighted choice; maxDepth bounds recursion
// through nested expansions (zero means DefaultMaxDepth).
func Expand(syn *Syntax, start string, ctx ContextLookup, rng RNG, maxDepth int) (string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if ctx != nil {
		if v, ok := ctx(start); ok {
			return v, nil
		}
	}
	rule, ok := syn.rules[start]
	if !ok {
		return "", &UnknownStartError{Name: start}
	}
	e := &expander{syn: syn, ctx: ctx, rng: rng, maxDepth: maxDepth}
	return e.expandRule(rule, 0)
}

type expander struct {
	syn      *Syntax
	ctx      ContextLookup
	rng      RNG
	maxDepth int
}

func (e *expander) expandName(name string, depth int) (string, error) {
	if depth > e.maxDepth {
		return "", &DepthExceededError{Limit: e.maxDepth}
	}
	if e.ctx != nil {
		if v, ok := e.ctx(name); ok {
			return v, nil
		}
	}
	rule, ok := e.syn.rules[name]
	if !ok {
		return "", &UnknownReferenceError{Name: name}
	}
	return e.expandRule(rule, depth)
}

func (e *expander) expandRule(rule *ProductionRule, depth int) (string, error) {
	alt, err := e.chooseAlternative(rule)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := range alt.Parts {
		part := &alt.Parts[i]
		switch part.Kind {
		case PartLiteral:
			sb.WriteString(part.Literal)
		case PartExpansion:
			s, err := e.expandName(part.Name, depth+1)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
		case PartAnon:
			if depth+1 > e.maxDepth {
				return "", &DepthExceededError{Limit: e.maxDepth}
			}
			s, err := e.expandRule(part.Anon, depth+1)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
		}
	}

	out := sb.String()
	out = applyAll(alt.Gsubs, out)
	out = applyAll(rule.Gsubs, out)
	return out, nil
}

// chooseAlternative picks an alternative weighted by rule.cumulative. A rule
// whose total weight is zero (every alternative explicitly weighted to 0)
// falls back to a uniform pick so generation can still make progress.
func (e *expander) chooseAlternative(rule *ProductionRule) (*Alternative, error) {
	if rule.weight <= 0 {
		idx := int(e.rng.Float64() * float64(len(rule.Alternatives)))
		if idx >= len(rule.Alternatives) {
			idx = len(rule.Alternatives) - 1
		}
		return &rule.Alternatives[idx], nil
	}
	r := e.rng.Float64() * rule.weight
	for i := range rule.cumulative {
		if r < rule.cumulative[i] {
			return &rule.Alternatives[i], nil
		}
	}
	return &rule.Alternatives[len(rule.Alternatives)-1], nil
}
