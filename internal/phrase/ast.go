package phrase

// PartKind tags the variant held by a TextPart.
type PartKind int

const (
	// PartLiteral holds a literal UTF-8 string.
	PartLiteral PartKind = iota
	// PartExpansion holds the name of a nonterminal to expand.
	PartExpansion
	// PartAnon holds an inline production rule introduced by "{= ... }".
	PartAnon
)

// TextPart is one element of an alternative's option sequence: a literal
// run of text, a reference to a nonterminal, or an inline anonymous
// production rule.
type TextPart struct {
	Kind    PartKind
	Literal string
	Name    string
	Anon    *ProductionRule
}

// Gsub is a single substitution: pattern, replacement, and whether it
// replaces every non-overlapping match (Global) or only the first.
type Gsub struct {
	Pattern     string
	Replacement string
	Global      bool

	matcher CompiledMatcher
}

// Alternative is one option of a production rule: a sequence of TextParts,
// an optional explicit weight, whether it was introduced with the
// equalizing separator "|=", and its own ordered gsubs.
type Alternative struct {
	Parts        []TextPart
	Gsubs        []Gsub
	ExplicitWeight *float64
	Equalize     bool

	weight float64
	comb   uint64
}

// ProductionRule is the body bound to a nonterminal: an ordered list of
// alternatives plus rule-level gsubs applied after whichever alternative is
// selected.
type ProductionRule struct {
	Alternatives []Alternative
	Gsubs        []Gsub

	// cumulative[i] is the running sum of Alternatives[0..i].weight, used
	// for weighted selection without recomputing sums on every Generate.
	cumulative []float64
	weight     float64
	comb       uint64
	bound      bool
}

// TotalWeight returns the rule's effective weight. Valid only after the
// owning Syntax has been bound (see Syntax.Bind).
func (r *ProductionRule) TotalWeight() float64 {
	return r.weight
}

// Combinations returns the number of distinct outputs reachable from the
// rule, saturating at the maximum uint64 value on overflow.
func (r *ProductionRule) Combinations() uint64 {
	return r.comb
}

// Syntax is a compiled mapping from nonterminal name to ProductionRule, as
// produced by Parse. A Syntax is immutable once returned from Parse; the
// Generator façade, not Syntax itself, handles combining several of them
// and invalidating cached weights when the combination changes.
type Syntax struct {
	rules map[string]*ProductionRule

	// local holds the names (without the leading "_") that were declared as
	// syntax-local and so must never be resolved from outside this Syntax,
	// nor shadowed by an ExternalContext.
	local map[string]bool
}

// newSyntax returns an empty, mutable Syntax ready to receive assignments
// from the parser.
func newSyntax() *Syntax {
	return &Syntax{
		rules: make(map[string]*ProductionRule),
		local: make(map[string]bool),
	}
}

// Rule looks up a nonterminal's ProductionRule. ok is false if the name is
// not defined in this Syntax.
func (s *Syntax) Rule(name string) (*ProductionRule, bool) {
	r, ok := s.rules[name]
	return r, ok
}

// Names returns the nonterminal names defined in this Syntax, including
// local ones.
func (s *Syntax) Names() []string {
	names := make([]string, 0, len(s.rules))
	for n := range s.rules {
		names = append(names, n)
	}
	return names
}

// IsLocal returns whether name was declared with a leading "_", making it
// visible only within this compile unit.
func (s *Syntax) IsLocal(name string) bool {
	return s.local[name]
}

func isLocalName(name string) bool {
	return len(name) > 0 && name[0] == '_'
}
