package phrase

import "fmt"

// MergeEntry is one (scope, Syntax) pair being combined by Merge. Scope, if
// non-empty, prefixes every non-local name the Syntax defines; an empty
// scope leaves names bare. When two entries define the same effective name,
// the later entry in the slice wins, matching a Generator's "later add
// shadows earlier on name clash" rule.
type MergeEntry struct {
	Scope  string
	Syntax *Syntax
}

// Merge combines several compiled Syntaxes into one, applying each entry's
// scope prefix to its non-local names and renaming syntax-local names (the
// leading "_" convention) so they stay invisible outside the Syntax that
// declared them, even when two entries happen to both declare "_helper".
// The returned Syntax is unbound; call Bind before generating from it.
func Merge(entries []MergeEntry) *Syntax {
	merged := newSyntax()

	for idx, e := range entries {
		localPrefix := fmt.Sprintf("_m%d#", idx)
		for name, rule := range e.Syntax.rules {
			key := mergedKey(name, e.Scope, e.Syntax, localPrefix)
			merged.rules[key] = remapRule(rule, e.Scope, e.Syntax, localPrefix)
			if e.Syntax.IsLocal(name) {
				merged.local[key] = true
			}
		}
	}

	return merged
}

func mergedKey(name, scope string, owner *Syntax, localPrefix string) string {
	if owner.IsLocal(name) {
		return localPrefix + name
	}
	if scope != "" {
		return scope + "." + name
	}
	return name
}

// remapName rewrites a single reference found inside owner's rules so it
// keeps pointing at the same logical rule once merged: local names get
// mangled to stay private to owner, and non-local intra-owner references
// gain owner's scope prefix. A name owner never defined is left untouched,
// since it's meant to resolve via ExternalContext or, if the author truly
// intends a cross-syntax bare reference, another entry's unscoped name.
func remapName(name, scope string, owner *Syntax, localPrefix string) string {
	if owner.IsLocal(name) {
		return localPrefix + name
	}
	if _, ok := owner.rules[name]; ok {
		if scope != "" {
			return scope + "." + name
		}
		return name
	}
	return name
}

func remapRule(rule *ProductionRule, scope string, owner *Syntax, localPrefix string) *ProductionRule {
	out := &ProductionRule{
		Alternatives: make([]Alternative, len(rule.Alternatives)),
		Gsubs:        rule.Gsubs,
	}
	for i := range rule.Alternatives {
		out.Alternatives[i] = remapAlternative(&rule.Alternatives[i], scope, owner, localPrefix)
	}
	return out
}

func remapAlternative(alt *Alternative, scope string, owner *Syntax, localPrefix string) Alternative {
	out := Alternative{
		Parts:          make([]TextPart, len(alt.Parts)),
		Gsubs:          alt.Gsubs,
		ExplicitWeight: alt.ExplicitWeight,
		Equalize:       alt.Equalize,
	}
	for i := range alt.Parts {
		out.Parts[i] = remapPart(&alt.Parts[i], scope, owner, localPrefix)
	}
	return out
}

func remapPart(part *TextPart, scope string, owner *Syntax, localPrefix string) TextPart {
	switch part.Kind {
	case PartExpansion:
		return TextPart{Kind: PartExpansion, Name: remapName(part.Name, scope, owner, localPrefix)}
	case PartAnon:
		return TextPart{Kind: PartAnon, Anon: remapRule(part.Anon, scope, owner, localPrefix)}
	default:
		return TextPart{Kind: PartLiteral, Literal: part.Literal}
	}
}
