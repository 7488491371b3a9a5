package phrase

import (
	"strconv"
	"strings"
)

// Option configures a Parse call.
type Option func(*parser)

// WithBackend selects the Backend used to compile every gsub pattern found
// in the source text. The default is RegexpBackend{}.
func WithBackend(b Backend) Option {
	return func(p *parser) { p.backend = b }
}

type parser struct {
	scanner
	backend Backend
	err     ParseError
}

// Parse compiles phrase-syntax source text into a Syntax. On failure it
// returns a *ParseError carrying every Issue found; it never returns a
// partially built Syntax alongside an error.
func Parse(src string, opts ...Option) (*Syntax, error) {
	p := &parser{scanner: *newScanner(src), backend: RegexpBackend{}}
	for _, opt := range opts {
		opt(p)
	}

	syn := newSyntax()
	p.skipBlank()
	for !p.eof() {
		startPos := p.pos
		p.parseAssignment(syn)
		if p.pos == startPos {
			// parseAssignment made no progress; avoid an infinite loop by
			// forcing past the offending rune.
			p.advance()
		}
		p.skipBlank()
	}

	if p.err.any() {
		return nil, &p.err
	}
	return syn, nil
}

func (p *parser) skipInline() {
	for {
		if p.eof() {
			return
		}
		c := p.peek()
		if c == ' ' || c == '\t' {
			p.advance()
			continue
		}
		if c == '{' && p.peekAt(1) == '*' {
			p.advanceN(2)
			p.consumeCommentBody()
			continue
		}
		return
	}
}

func (p *parser) skipBlank() {
	for {
		if p.eof() {
			return
		}
		c := p.peek()
		if c == ' ' || c == '\t' || c == '\n' {
			p.advance()
			continue
		}
		if c == '{' && p.peekAt(1) == '*' {
			p.advanceN(2)
			p.consumeCommentBody()
			continue
		}
		return
	}
}

// skipOperatorSpace implements the rule that a structural operator ("=",
// "|", "|=", "~", "~~") may be preceded by inline space and followed by
// inline space plus at most one newline.
func (p *parser) skipOperatorSpace() {
	p.skipInline()
	if p.peek() == '\n' {
		p.advance()
		p.skipInline()
	}
}

// consumeCommentBody assumes "{*" has already been consumed and scans to the
// matching "*}", honoring nested "{*" ... "*}" pairs.
func (p *parser) consumeCommentBody() bool {
	depth := 1
	for {
		if p.eof() {
			return false
		}
		if p.peek() == '*' && p.peekAt(1) == '}' {
			p.advanceN(2)
			depth--
			if depth == 0 {
				return true
			}
			continue
		}
		if p.peek() == '{' && p.peekAt(1) == '*' {
			p.advanceN(2)
			depth++
			continue
		}
		p.advance()
	}
}

// recoverToNewline discards input up to (not including) the next unescaped
// newline, so a single malformed assignment doesn't stop the parser from
// reporting problems in the rest of the source.
func (p *parser) recoverToNewline() {
	for !p.eof() && p.peek() != '\n' {
		p.advance()
	}
}

func (p *parser) parseName() (string, bool) {
	if !isAlpha(p.peek()) {
		return "", false
	}
	var sb strings.Builder
	for isNameChar(p.peek()) {
		sb.WriteRune(p.advance())
	}
	return sb.String(), true
}

func (p *parser) parseAssignment(syn *Syntax) {
	line, col := p.line, p.col
	name, ok := p.parseName()
	if !ok {
		p.err.add(line, col, KindUnexpectedToken, "expected nonterminal name")
		p.recoverToNewline()
		return
	}

	p.skipInline()
	if !p.consume('=') {
		p.err.add(p.line, p.col, KindUnexpectedToken, "expected '=' after nonterminal name %q", name)
		p.recoverToNewline()
		return
	}
	p.skipOperatorSpace()

	rule, ok := p.parseProductionRule(false)
	if !ok {
		p.recoverToNewline()
		return
	}

	p.skipInline()
	if !p.eof() && !p.consume('\n') {
		p.err.add(p.line, p.col, KindUnexpectedToken, "expected end of assignment for %q", name)
		p.recoverToNewline()
		return
	}

	if _, exists := syn.rules[name]; exists {
		p.err.add(line, col, KindDuplicateAssign, "nonterminal %q already assigned", name)
		return
	}
	syn.rules[name] = rule
	if isLocalName(name) {
		syn.local[name] = true
	}
}

// parseProductionRule parses one or more '|'/'|=' separated alternatives
// followed by optional rule-level gsubs, introduced by "~~" to distinguish
// them from the last alternative's own trailing "~" gsubs.
func (p *parser) parseProductionRule(inAnon bool) (*ProductionRule, bool) {
	rule := &ProductionRule{}

	alt, ok := p.parseAlternative(inAnon)
	if !ok {
		return nil, false
	}
	rule.Alternatives = append(rule.Alternatives, alt)

	for {
		save, saveLine, saveCol := p.pos, p.line, p.col
		p.skipOperatorSpace()
		switch {
		case p.peekStr("|="):
			p.advanceN(2)
			p.skipOperatorSpace()
			alt, ok := p.parseAlternative(inAnon)
			if !ok {
				return nil, false
			}
			alt.Equalize = true
			rule.Alternatives = append(rule.Alternatives, alt)
			continue
		case p.peek() == '|':
			p.advance()
			p.skipOperatorSpace()
			alt, ok := p.parseAlternative(inAnon)
			if !ok {
				return nil, false
			}
			rule.Alternatives = append(rule.Alternatives, alt)
			continue
		}
		p.pos, p.line, p.col = save, saveLine, saveCol
		break
	}

	for {
		save, saveLine, saveCol := p.pos, p.line, p.col
		p.skipOperatorSpace()
		if p.peekStr("~~") {
			p.advanceN(2)
			g, ok := p.parseGsubBody()
			if !ok {
				return nil, false
			}
			rule.Gsubs = append(rule.Gsubs, g)
			continue
		}
		p.pos, p.line, p.col = save, saveLine, saveCol
		break
	}

	return rule, true
}

func (p *parser) parseAlternative(inAnon bool) (Alternative, bool) {
	line, col := p.line, p.col
	var alt Alternative

	for {
		if p.atPartSeparator(inAnon) {
			break
		}
		c := p.peek()

		if c == '"' || c == '\'' || c == '`' {
			lit, ok := p.parseQuotedLiteral(c)
			if !ok {
				return alt, false
			}
			alt.Parts = append(alt.Parts, TextPart{Kind: PartLiteral, Literal: lit})
			continue
		}

		if c == '{' {
			part, ok := p.parseExpansion(inAnon)
			if !ok {
				return alt, false
			}
			if part != nil {
				alt.Parts = append(alt.Parts, *part)
			}
			continue
		}

		lit, stoppedAtBrace := p.scanLiteralRun(inAnon)
		if !stoppedAtBrace {
			lit = strings.TrimRight(lit, " \t")
		}
		if lit != "" {
			alt.Parts = append(alt.Parts, TextPart{Kind: PartLiteral, Literal: lit})
		} else if !stoppedAtBrace && !p.atPartSeparator(inAnon) {
			// scanLiteralRun made no progress and isn't about to hand off to
			// an expansion or a recognized separator; avoid looping forever
			// on an unexpected rune.
			p.err.add(p.line, p.col, KindUnexpectedToken, "unexpected character %q", string(p.peek()))
			return alt, false
		}
	}

	if len(alt.Parts) == 0 {
		p.err.add(line, col, KindEmptyRule, "alternative has no content")
		return alt, false
	}

	for {
		save, saveLine, saveCol := p.pos, p.line, p.col
		p.skipOperatorSpace()
		if p.peek() == '~' && !p.peekStr("~~") {
			p.advance()
			g, ok := p.parseGsubBody()
			if !ok {
				return alt, false
			}
			alt.Gsubs = append(alt.Gsubs, g)
			continue
		}
		p.pos, p.line, p.col = save, saveLine, saveCol
		break
	}

	w, hadColon, valid := p.tryParseWeight()
	if hadColon && !valid {
		return alt, false
	}
	if hadColon {
		alt.ExplicitWeight = w
	}

	return alt, true
}

// atPartSeparator reports whether the parser sits at a rune that ends an
// alternative's parts list: EOF, a newline, '|', '~', a weight-introducing
// ':', or (inside an anonymous rule) '}'. Whitespace preceding one of these
// is not itself a separator; callers trim it off before checking.
func (p *parser) atPartSeparator(inAnon bool) bool {
	if p.eof() {
		return true
	}
	c := p.peek()
	if c == '\n' || c == '|' || c == '~' {
		return true
	}
	if inAnon && c == '}' {
		return true
	}
	return c == ':' && p.weightLookahead()
}

// scanLiteralRun consumes an unquoted run of literal text, stopping before
// '{' (reports stoppedAtBrace=true, so the caller does not trim the space
// that may legitimately precede an expansion), or before '|', '~', a
// newline, EOF, a weight-introducing ':', or (inside an anonymous rule) '}'.
func (p *parser) scanLiteralRun(inAnon bool) (text string, stoppedAtBrace bool) {
	var sb strings.Builder
	for {
		if !p.eof() && p.peek() == '{' {
			return sb.String(), true
		}
		if p.atPartSeparator(inAnon) {
			return sb.String(), false
		}
		sb.WriteRune(p.advance())
	}
}

func (p *parser) weightLookahead() bool {
	if p.peek() != ':' {
		return false
	}
	n := p.peekAt(1)
	if isDigit(n) {
		return true
	}
	if n == '.' && isDigit(p.peekAt(2)) {
		return true
	}
	return false
}

func (p *parser) parseQuotedLiteral(quote rune) (string, bool) {
	line, col := p.line, p.col
	p.advance()
	var sb strings.Builder
	for {
		if p.eof() || p.peek() == '\n' {
			p.err.add(line, col, KindUnterminatedLit, "unterminated quoted literal")
			return "", false
		}
		c := p.peek()
		if c == quote {
			p.advance()
			break
		}
		sb.WriteRune(p.advance())
	}
	return sb.String(), true
}

// parseExpansion parses the body of a "{...}" construct: the brace-escapes
// "{(}" and "{)}", a "{* ... *}" comment, an inline anonymous rule
// "{= ... }", or a plain nonterminal reference. It returns a nil *TextPart
// (with ok true) for a comment, since a comment contributes no text.
func (p *parser) parseExpansion(inAnon bool) (*TextPart, bool) {
	line, col := p.line, p.col
	p.advance() // consume '{'

	if p.peek() == '(' && p.peekAt(1) == '}' {
		p.advanceN(2)
		return &TextPart{Kind: PartLiteral, Literal: "{"}, true
	}
	if p.peek() == ')' && p.peekAt(1) == '}' {
		p.advanceN(2)
		return &TextPart{Kind: PartLiteral, Literal: "}"}, true
	}
	if p.peek() == '*' {
		p.advance()
		if !p.consumeCommentBody() {
			p.err.add(line, col, KindUnterminatedLit, "unterminated comment")
			return nil, false
		}
		return nil, true
	}
	if p.peek() == '=' {
		p.advance()
		p.skipBlank()
		rule, ok := p.parseProductionRule(true)
		if !ok {
			return nil, false
		}
		p.skipBlank()
		if !p.consume('}') {
			p.err.add(p.line, p.col, KindUnterminatedLit, "expected '}' to close inline rule")
			return nil, false
		}
		return &TextPart{Kind: PartAnon, Anon: rule}, true
	}

	name, ok := p.parseName()
	if !ok || name == "" {
		p.err.add(p.line, p.col, KindUnexpectedToken, "expected nonterminal name inside '{...}'")
		return nil, false
	}
	p.skipInline()
	if !p.consume('}') {
		p.err.add(p.line, p.col, KindUnterminatedLit, "expected '}' after nonterminal reference %q", name)
		return nil, false
	}
	return &TextPart{Kind: PartExpansion, Name: name}, true
}

// parseGsubBody parses the body of a gsub after its introducing "~" or "~~"
// has already been consumed: a delimiter character, pattern, replacement,
// and optional "g" flag, each segment separated by the same delimiter.
func (p *parser) parseGsubBody() (Gsub, bool) {
	line, col := p.line, p.col
	p.skipOperatorSpace()

	if p.eof() || p.peek() == '\n' {
		p.err.add(line, col, KindUnterminatedGsub, "expected delimiter after '~'")
		return Gsub{}, false
	}
	sep := p.peek()
	if sep == ' ' || sep == '\t' || sep == '{' || sep == '}' {
		p.err.add(line, col, KindUnterminatedGsub, "invalid gsub delimiter %q", string(sep))
		return Gsub{}, false
	}
	p.advance()

	pattern, ok := p.scanGsubSegment(sep)
	if !ok {
		p.err.add(line, col, KindUnterminatedGsub, "unterminated gsub pattern")
		return Gsub{}, false
	}
	p.advance() // consume sep

	replacement, ok := p.scanGsubSegment(sep)
	if !ok {
		p.err.add(line, col, KindUnterminatedGsub, "unterminated gsub replacement")
		return Gsub{}, false
	}
	p.advance() // consume sep

	global := false
	if p.peek() == 'g' {
		p.advance()
		global = true
	}

	if pattern == "" {
		p.err.add(line, col, KindBadRegex, "gsub pattern must not be empty")
		return Gsub{}, false
	}

	matcher, err := p.backend.Compile(pattern, replacement)
	if err != nil {
		p.err.add(line, col, KindBadRegex, "%v", err)
		return Gsub{}, false
	}

	return Gsub{
		Pattern:     pattern,
		Replacement: replacement,
		Global:      global,
		matcher:     matcher,
	}, true
}

func (p *parser) scanGsubSegment(sep rune) (string, bool) {
	var sb strings.Builder
	for {
		if p.eof() || p.peek() == '\n' {
			return "", false
		}
		if p.peek() == sep {
			return sb.String(), true
		}
		sb.WriteRune(p.advance())
	}
}

// tryParseWeight attempts to consume a trailing ":" number" on an
// alternative. hadColon is false if there was no ':' at all, in which case
// the scanner position is left untouched. If hadColon is true and valid is
// false, the number was malformed and an Issue has already been recorded;
// the caller should abort the alternative.
func (p *parser) tryParseWeight() (weight *float64, hadColon bool, valid bool) {
	save, saveLine, saveCol := p.pos, p.line, p.col
	p.skipInline()
	if p.peek() != ':' {
		p.pos, p.line, p.col = save, saveLine, saveCol
		return nil, false, false
	}
	line, col := p.line, p.col
	p.advance()
	p.skipInline()

	var sb strings.Builder
	for isDigit(p.peek()) {
		sb.WriteRune(p.advance())
	}
	if p.peek() == '.' {
		sb.WriteRune(p.advance())
		for isDigit(p.peek()) {
			sb.WriteRune(p.advance())
		}
	}

	numStr := sb.String()
	val, err := strconv.ParseFloat(numStr, 64)
	if err != nil || numStr == "" || numStr == "." || val < 0 {
		p.err.add(line, col, KindBadWeight, "invalid weight %q", numStr)
		return nil, true, false
	}
	return &val, true, true
}
