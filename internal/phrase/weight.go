package phrase

import (
	"fmt"
	"math"
)

const maxUint64 = math.MaxUint64

// Bind computes the weight and combination count of every rule in s,
// including the bodies of inline anonymous rules, in reverse topological
// order over the reference graph. known reports whether a name undefined in
// s should nonetheless be treated as a resolvable external leaf (weight 1,
// one combination) rather than left for generate-time UnknownReferenceError
// reporting.
//
// equalizeChance selects how a non-explicit, non-"|="  alternative's default
// weight is derived: true (the Generator default) makes it proportional to
// the alternative's own leaf/combination count, which is what makes every
// distinct final output equally likely absent any override; false collapses
// every such alternative's default weight to a flat 1, so each alternative
// itself (not each output it can produce) is equally likely. Either way, an
// explicit ":" weight and the "|=" equalize-to-max-sibling rule are honored
// unchanged.
//
// Bind returns a *CyclicReferenceError if the reference graph contains a
// cycle; weight is undefined for any rule in such a cycle, so generation
// never proceeds with an unbound Syntax.
func (s *Syntax) Bind(known func(name string) bool, equalizeChance bool) error {
	visiting := make(map[string]bool, len(s.rules))
	done := make(map[string]bool, len(s.rules))

	var visit func(name string) error
	visit = func(name string) error {
		if done[name] {
			return nil
		}
		rule, ok := s.rules[name]
		if !ok {
			// Not ours: either an external leaf or unknown, both resolved
			// later. Neither participates in cycle detection here.
			return nil
		}
		if visiting[name] {
			return &CyclicReferenceError{Name: name}
		}
		visiting[name] = true
		if err := s.bindRule(rule, visit, known, equalizeChance); err != nil {
			return err
		}
		visiting[name] = false
		done[name] = true
		rule.bound = true
		return nil
	}

	for name := range s.rules {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// bindRule computes weight/comb for every alternative in rule and then the
// rule's own totals, recursing into visit for each named reference and into
// itself (directly, since anonymous rules have no name to recurse through
// visit) for each inline anonymous rule.
func (s *Syntax) bindRule(rule *ProductionRule, visit func(string) error, known func(string) bool, equalizeChance bool) error {
	raw := make([]float64, len(rule.Alternatives))
	combs := make([]uint64, len(rule.Alternatives))

	for i := range rule.Alternatives {
		w, c, err := s.bindAlternativeParts(&rule.Alternatives[i], visit, known, equalizeChance)
		if err != nil {
			return err
		}
		raw[i] = w
		combs[i] = c
	}

	defaultWeight := func(i int) float64 {
		if equalizeChance {
			return raw[i]
		}
		return 1
	}

	// maxNonExplicit drives "|=": it always tracks the largest raw
	// combinatorial contribution among non-explicit siblings, regardless of
	// equalizeChance, so an Equalize alternative is raised to match its
	// biggest sibling's own output count even when the rule's other
	// defaults are flattened to 1.
	var maxNonExplicit float64
	for i := range rule.Alternatives {
		if rule.Alternatives[i].ExplicitWeight == nil {
			if w := raw[i]; w > maxNonExplicit {
				maxNonExplicit = w
			}
		}
	}

	var total float64
	var totalComb uint64
	cumulative := make([]float64, len(rule.Alternatives))
	for i := range rule.Alternatives {
		alt := &rule.Alternatives[i]
		var w float64
		switch {
		case alt.ExplicitWeight != nil:
			w = *alt.ExplicitWeight
		case alt.Equalize:
			w = maxNonExplicit
			if w == 0 {
				w = defaultWeight(i)
			}
		default:
			w = defaultWeight(i)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return &WeightError{Value: fmt.Sprintf("%v", w)}
		}
		alt.weight = w
		alt.comb = combs[i]
		total += w
		totalComb = addSatUint64(totalComb, combs[i])
		cumulative[i] = total
	}

	if math.IsNaN(total) || math.IsInf(total, 0) {
		return &WeightError{Value: fmt.Sprintf("%v", total)}
	}

	rule.weight = total
	rule.comb = totalComb
	rule.cumulative = cumulative
	return nil
}

func (s *Syntax) bindAlternativeParts(alt *Alternative, visit func(string) error, known func(string) bool, equalizeChance bool) (weight float64, comb uint64, err error) {
	weight, comb = 1, 1
	for i := range alt.Parts {
		part := &alt.Parts[i]
		switch part.Kind {
		case PartLiteral:
			// contributes weight 1, one combination
		case PartExpansion:
			if err := visit(part.Name); err != nil {
				return 0, 0, err
			}
			if rule, ok := s.rules[part.Name]; ok {
				weight *= rule.weight
				comb = mulSatUint64(comb, rule.comb)
			}
			// an unknown/external name contributes weight 1, one
			// combination, same as a literal; validity is checked again at
			// generate time against the live ExternalContext.
		case PartAnon:
			if err := s.bindRule(part.Anon, visit, known, equalizeChance); err != nil {
				return 0, 0, err
			}
			weight *= part.Anon.weight
			comb = mulSatUint64(comb, part.Anon.comb)
		}
	}
	return weight, comb, nil
}

func addSatUint64(a, b uint64) uint64 {
	if a > maxUint64-b {
		return maxUint64
	}
	return a + b
}

func mulSatUint64(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > maxUint64/b {
		return maxUint64
	}
	return a * b
}
