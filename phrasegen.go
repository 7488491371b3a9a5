// Package phrasegen compiles phrase-syntax grammars and generates weighted
// random text from them. It wraps internal/phrase's parser, weight model,
// and expander behind a single Generator façade that can combine several
// compiled grammars, each under its own optional name scope.
package phrasegen

import (
	"fmt"
	"time"

	"github.com/dekarrin/phrasegen/internal/phrase"
)

// Syntax is a compiled, immutable grammar produced by Parse.
type Syntax = phrase.Syntax

// ParseError aggregates every malformed construct found while parsing a
// phrase-syntax source text; a ParseError never comes bundled with a
// partial Syntax.
type ParseError = phrase.ParseError

// Issue is a single detail within a ParseError.
type Issue = phrase.Issue

// CyclicReferenceError, UnknownStartError, UnknownReferenceError,
// DepthExceededError, GsubError, and WeightError are the error kinds a
// Generator can return once parsing has already succeeded.
type (
	CyclicReferenceError  = phrase.CyclicReferenceError
	UnknownStartError     = phrase.UnknownStartError
	UnknownReferenceError = phrase.UnknownReferenceError
	DepthExceededError    = phrase.DepthExceededError
	GsubError             = phrase.GsubError
	WeightError           = phrase.WeightError
)

// Backend compiles a gsub pattern. LiteralBackend and RegexpBackend are the
// two implementations the engine ships with.
type Backend = phrase.Backend

// NewLiteralBackend returns a Backend that matches gsub patterns as raw
// UTF-8 text.
func NewLiteralBackend() Backend { return phrase.LiteralBackend{} }

// NewRegexpBackend returns a Backend that compiles gsub patterns with the
// standard library's regexp engine. This is the default used by Parse.
func NewRegexpBackend() Backend { return phrase.RegexpBackend{} }

// RNG selects a uniformly distributed float in [0,1) to drive weighted
// selection.
type RNG = phrase.RNG

// DefaultRNG returns an RNG backed by math/rand.
func DefaultRNG(seed int64) RNG { return phrase.DefaultRNG(seed) }

// ExternalContext maps a nonterminal name to a precomputed string. A name
// present in the context shadows a same-named rule in every Syntax added to
// a Generator: its value is substituted verbatim, with no further
// expansion or gsub processing.
type ExternalContext map[string]string

func (c ExternalContext) lookup(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c[name]
	return v, ok
}

func (c ExternalContext) known(name string) bool {
	_, ok := c[name]
	return ok
}

// ParseOption configures a Parse call.
type ParseOption func(*parseConfig)

type parseConfig struct {
	backend Backend
}

// WithBackend selects the Backend used to compile every gsub pattern found
// in the source text parsed. The default is NewRegexpBackend().
func WithBackend(b Backend) ParseOption {
	return func(c *parseConfig) { c.backend = b }
}

// Parse compiles phrase-syntax source text into a Syntax. The returned
// Syntax is unbound: add it to a Generator (or call its own Bind by hand
// through the Generator) before generating from it.
func Parse(text string, opts ...ParseOption) (*Syntax, error) {
	cfg := parseConfig{backend: phrase.RegexpBackend{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return phrase.Parse(text, phrase.WithBackend(cfg.backend))
}

// State is a Generator's position in its lifecycle.
type State int

const (
	// StateEmpty is a Generator with no syntaxes added yet.
	StateEmpty State = iota
	// StateConfigured has syntaxes added but weights not yet computed.
	StateConfigured
	// StateBound has a resolved start symbol and computed weights.
	StateBound
	// StateGenerating has produced at least one string since binding.
	StateGenerating
	// StateModified was Bound or Generating, then mutated; it must be
	// rebound before the next generate call.
	StateModified
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateConfigured:
		return "configured"
	case StateBound:
		return "bound"
	case StateGenerating:
		return "generating"
	case StateModified:
		return "modified"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type addedSyntax struct {
	scope string
	syn   *Syntax
}

// Generator assembles one or more compiled Syntaxes under name scopes and
// generates weighted random text against a chosen start symbol. It is not
// safe for concurrent mutation or generation from more than one goroutine;
// callers sharing a Generator across goroutines must provide their own
// exclusion.
type Generator struct {
	added    []addedSyntax
	merged   *Syntax
	state    State
	equalize bool
	rng      RNG
	maxDepth int
}

// NewGenerator returns an empty Generator with equalize_chance on (the
// default) and an RNG seeded from the current time.
func NewGenerator() *Generator {
	return &Generator{
		state:    StateEmpty,
		equalize: true,
		rng:      phrase.DefaultRNG(time.Now().UnixNano()),
		maxDepth: phrase.DefaultMaxDepth,
	}
}

// State reports the Generator's current lifecycle state.
func (g *Generator) State() State { return g.state }

// WithRNG overrides the RNG used for every subsequent selection. It does
// not invalidate the bound weight cache, since the choice of RNG has no
// bearing on the computed weights themselves.
func (g *Generator) WithRNG(rng RNG) *Generator {
	g.rng = rng
	return g
}

// WithMaxDepth overrides the recursion depth limit used during generation.
func (g *Generator) WithMaxDepth(depth int) *Generator {
	if depth > 0 {
		g.maxDepth = depth
	}
	return g
}

// Add merges syn into the Generator under scope. An empty scope leaves
// syn's non-local names bare; a non-empty scope prefixes them as
// "scope.name". When two added syntaxes define the same effective name,
// the later Add wins. Add invalidates the weight cache.
func (g *Generator) Add(scope string, syn *Syntax) *Generator {
	g.added = append(g.added, addedSyntax{scope: scope, syn: syn})
	g.invalidate()
	return g
}

// Remove drops every syntax previously added under scope.
func (g *Generator) Remove(scope string) *Generator {
	kept := g.added[:0]
	for _, a := range g.added {
		if a.scope != scope {
			kept = append(kept, a)
		}
	}
	g.added = kept
	g.invalidate()
	return g
}

// EqualizeChance toggles whether a non-explicit, non-"|=" alternative's
// default weight is proportional to its own leaf count (true, the default,
// making every distinct final output equally likely absent an override) or
// flat (false, making every alternative equally likely to be chosen
// regardless of how many outputs it can itself produce). Explicit ":"
// weights and "|=" are honored either way. EqualizeChance invalidates the
// weight cache.
func (g *Generator) EqualizeChance(enabled bool) *Generator {
	if g.equalize != enabled {
		g.equalize = enabled
		g.invalidate()
	}
	return g
}

func (g *Generator) invalidate() {
	g.merged = nil
	switch g.state {
	case StateBound, StateGenerating:
		g.state = StateModified
	case StateEmpty:
		if len(g.added) > 0 {
			g.state = StateConfigured
		}
	default:
		if len(g.added) == 0 {
			g.state = StateEmpty
		} else {
			g.state = StateConfigured
		}
	}
}

// Bind merges every added syntax, resolves references against ext (names
// ext defines are treated as external leaves rather than unknown
// references), and computes weights. It is safe to call directly, but
// Generate calls it implicitly whenever the Generator isn't already Bound
// or Generating.
func (g *Generator) Bind(ext ExternalContext) error {
	entries := make([]phrase.MergeEntry, len(g.added))
	for i, a := range g.added {
		entries[i] = phrase.MergeEntry{Scope: a.scope, Syntax: a.syn}
	}
	merged := phrase.Merge(entries)
	if err := merged.Bind(ext.known, g.equalize); err != nil {
		return err
	}
	g.merged = merged
	g.state = StateBound
	return nil
}

// Combinations returns the number of distinct outputs reachable from start,
// saturating at the maximum uint64 value on overflow. It binds the
// Generator first if needed.
func (g *Generator) Combinations(start string, ext ExternalContext) (uint64, error) {
	if err := g.ensureBound(ext); err != nil {
		return 0, err
	}
	rule, ok := g.merged.Rule(start)
	if !ok {
		return 0, &UnknownStartError{Name: start}
	}
	return rule.Combinations(), nil
}

// Weight returns start's effective weight. It binds the Generator first if
// needed.
func (g *Generator) Weight(start string, ext ExternalContext) (float64, error) {
	if err := g.ensureBound(ext); err != nil {
		return 0, err
	}
	rule, ok := g.merged.Rule(start)
	if !ok {
		return 0, &UnknownStartError{Name: start}
	}
	return rule.TotalWeight(), nil
}

// Generate produces one string by expanding start, using ext as the
// external context. It binds the Generator first if needed and transitions
// it to StateGenerating on success.
func (g *Generator) Generate(start string, ext ExternalContext) (string, error) {
	if err := g.ensureBound(ext); err != nil {
		return "", err
	}
	out, err := phrase.Expand(g.merged, start, ext.lookup, g.rng, g.maxDepth)
	if err != nil {
		return "", err
	}
	g.state = StateGenerating
	return out, nil
}

func (g *Generator) ensureBound(ext ExternalContext) error {
	if g.state == StateBound || g.state == StateGenerating {
		return nil
	}
	if g.state == StateEmpty {
		return fmt.Errorf("generator has no syntaxes added")
	}
	return g.Bind(ext)
}
