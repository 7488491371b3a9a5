package phrase

import "regexp"

// CompiledMatcher performs the substitutions described by a single Gsub
// against a subject string, once the Gsub's pattern has been compiled.
type CompiledMatcher interface {
	// ReplaceFirst replaces only the first match.
	ReplaceFirst(subject string) string
	// ReplaceAll replaces every non-overlapping match, left to right.
	ReplaceAll(subject string) string
}

// Backend compiles a (pattern, replacement) pair into a CompiledMatcher.
// The engine is agnostic to what "pattern" means; a Backend decides. Two
// backends ship with this package: LiteralBackend and RegexpBackend.
type Backend interface {
	Compile(pattern, replacement string) (CompiledMatcher, error)
}

// LiteralBackend matches pattern as raw, unescaped UTF-8 text and substitutes
// replacement verbatim; it is always available and never fails to compile.
type LiteralBackend struct{}

type literalMatcher struct {
	pattern     string
	replacement string
}

func (LiteralBackend) Compile(pattern, replacement string) (CompiledMatcher, error) {
	return &literalMatcher{pattern: pattern, replacement: replacement}, nil
}

func (m *literalMatcher) ReplaceFirst(subject string) string {
	if m.pattern == "" {
		return subject
	}
	i := indexOf(subject, m.pattern)
	if i < 0 {
		return subject
	}
	return subject[:i] + m.replacement + subject[i+len(m.pattern):]
}

func (m *literalMatcher) ReplaceAll(subject string) string {
	if m.pattern == "" {
		return subject
	}
	var out []byte
	rest := subject
	for {
		i := indexOf(rest, m.pattern)
		if i < 0 {
			out = append(out, rest...)
			break
		}
		out = append(out, rest[:i]...)
		out = append(out, m.replacement...)
		rest = rest[i+len(m.pattern):]
	}
	return string(out)
}

func indexOf(haystack, needle string) int {
	// explicit loop instead of strings.Index only so the literal backend has
	// no hidden dependency on how strings.Index treats an empty needle.
	n, h := len(needle), len(haystack)
	if n == 0 || n > h {
		return -1
	}
	for i := 0; i+n <= h; i++ {
		if haystack[i:i+n] == needle {
			return i
		}
	}
	return -1
}

// RegexpBackend compiles pattern with the standard library's regexp engine
// (RE2 syntax) and supports its "$1".."$9"/"${name}" back-reference syntax
// in replacement, exactly as regexp.Regexp.ReplaceAll does. This is the
// default backend: the phrase-syntax language treats the regex engine as an
// external, pluggable collaborator, and Go's regexp is the natural choice
// since none of the example repos in this corpus pull in a third-party
// regex engine for anything comparable.
type RegexpBackend struct{}

type regexpMatcher struct {
	re          *regexp.Regexp
	replacement string
}

func (RegexpBackend) Compile(pattern, replacement string) (CompiledMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &GsubError{Pattern: pattern, Cause: err}
	}
	return &regexpMatcher{re: re, replacement: replacement}, nil
}

func (m *regexpMatcher) ReplaceAll(subject string) string {
	return m.re.ReplaceAllString(subject, m.replacement)
}

func (m *regexpMatcher) ReplaceFirst(subject string) string {
	loc := m.re.FindStringSubmatchIndex(subject)
	if loc == nil {
		return subject
	}
	expanded := m.re.ExpandString(nil, m.replacement, subject, loc)
	return subject[:loc[0]] + string(expanded) + subject[loc[1]:]
}

// apply runs the gsub's compiled matcher against s, honoring Global.
func (g *Gsub) apply(s string) string {
	if g.matcher == nil {
		return s
	}
	if g.Global {
		return g.matcher.ReplaceAll(s)
	}
	return g.matcher.ReplaceFirst(s)
}

// applyAll runs gsubs in order, each seeing the previous one's output.
func applyAll(gsubs []Gsub, s string) string {
	for i := range gsubs {
		s = gsubs[i].apply(s)
	}
	return s
}
