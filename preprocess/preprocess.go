// Package preprocess flattens a root SLEIGH source file and every file it
// transitively @includes into a single text, expanding @define/@undef
// directives, @if/@ifdef/@ifndef/@elif/@else/@endif conditional blocks and
// $(NAME) interpolations.
//
// It is a purely lexical, line-oriented scanner (no SLEIGH tokenization
// happens here), grounded on original_source/src/preprocessor.rs's
// directive dispatch, hand-rolled over the input split into lines (no
// column tracking) rather than via a PEG library (none is genuinely used
// anywhere in the retrieved example pack — see DESIGN.md).
package preprocess

import (
	"os"
	"path/filepath"
	"strings"

	"sleigh/sleigherr"
)

// Preprocess reads dir/file and every file it transitively @includes,
// returning the flattened text with every @define/@include/@if-family
// directive resolved and every $(NAME) interpolation substituted.
func Preprocess(dir, file string) (string, error) {
	p := &preprocessor{defines: map[string]string{}}
	return p.processFile(dir, file)
}

type preprocessor struct {
	defines map[string]string
}

func (p *preprocessor) processFile(dir, file string) (string, error) {
	path := filepath.Join(dir, file)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", sleigherr.IoError{Path: path, Err: err}
	}
	return p.processText(dir, string(data))
}

// condState tracks one level of an @if/@ifdef/@ifndef nesting.
type condState struct {
	// matched is true once some branch in this chain has already been
	// emitted; subsequent @elif/@else in the same chain are skipped.
	matched bool
	// active is true if the current branch's body should be emitted.
	active bool
	// parentActive records whether the enclosing scope was emitting, so
	// a false parent forces every nested branch inactive regardless of
	// its own condition.
	parentActive bool
}

func (p *preprocessor) processText(dir, text string) (string, error) {
	lines := strings.Split(text, "\n")
	var out strings.Builder
	var stack []condState

	activeNow := func() bool {
		for _, c := range stack {
			if !c.active {
				return false
			}
		}
		return true
	}

	for _, raw := range lines {
		line := raw
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "@define"):
			if !activeNow() {
				continue
			}
			name, value, err := parseDefine(trimmed)
			if err != nil {
				return "", err
			}
			p.defines[name] = value

		case strings.HasPrefix(trimmed, "@undef"):
			if !activeNow() {
				continue
			}
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, "@undef"))
			delete(p.defines, name)

		case strings.HasPrefix(trimmed, "@include"):
			if !activeNow() {
				continue
			}
			path, err := parseInclude(trimmed)
			if err != nil {
				return "", err
			}
			included, err := p.processFile(dir, path)
			if err != nil {
				return "", err
			}
			out.WriteString(included)
			if !strings.HasSuffix(included, "\n") {
				out.WriteString("\n")
			}

		case strings.HasPrefix(trimmed, "@ifdef"):
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, "@ifdef"))
			_, ok := p.defines[name]
			stack = append(stack, condState{active: ok && parentActiveOf(stack), parentActive: activeNow(), matched: ok})

		case strings.HasPrefix(trimmed, "@ifndef"):
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, "@ifndef"))
			_, ok := p.defines[name]
			cond := !ok
			stack = append(stack, condState{active: cond && parentActiveOf(stack), parentActive: activeNow(), matched: cond})

		case strings.HasPrefix(trimmed, "@elif"):
			if len(stack) == 0 {
				return "", sleigherr.ParseError{Message: "@elif without matching @if", Excerpt: trimmed}
			}
			top := &stack[len(stack)-1]
			expr := strings.TrimSpace(strings.TrimPrefix(trimmed, "@elif"))
			cond, err := p.evalCondition(expr)
			if err != nil {
				return "", err
			}
			if top.matched {
				top.active = false
			} else {
				top.active = cond && top.parentActive
				top.matched = top.active
			}

		case strings.HasPrefix(trimmed, "@else"):
			if len(stack) == 0 {
				return "", sleigherr.ParseError{Message: "@else without matching @if", Excerpt: trimmed}
			}
			top := &stack[len(stack)-1]
			if top.matched {
				top.active = false
			} else {
				top.active = top.parentActive
				top.matched = top.active
			}

		case strings.HasPrefix(trimmed, "@endif"):
			if len(stack) == 0 {
				return "", sleigherr.ParseError{Message: "@endif without matching @if", Excerpt: trimmed}
			}
			stack = stack[:len(stack)-1]

		case strings.HasPrefix(trimmed, "@if"):
			expr := strings.TrimSpace(strings.TrimPrefix(trimmed, "@if"))
			cond, err := p.evalCondition(expr)
			if err != nil {
				return "", err
			}
			stack = append(stack, condState{active: cond && parentActiveOf(stack), parentActive: activeNow(), matched: cond})

		default:
			if !activeNow() {
				continue
			}
			expanded, err := p.expand(line)
			if err != nil {
				return "", err
			}
			out.WriteString(expanded)
			out.WriteString("\n")
		}
	}

	if len(stack) != 0 {
		return "", sleigherr.ParseError{Message: "unterminated @if block"}
	}
	return out.String(), nil
}

func parentActiveOf(stack []condState) bool {
	for _, c := range stack {
		if !c.active {
			return false
		}
	}
	return true
}

func parseDefine(line string) (name, value string, err error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "@define"))
	fields := strings.SplitN(rest, " ", 2)
	name = fields[0]
	if name == "" {
		return "", "", sleigherr.ParseError{Message: "@define missing name", Excerpt: line}
	}
	if len(fields) == 2 {
		value = strings.TrimSpace(fields[1])
		value = strings.Trim(value, `"`)
	}
	return name, value, nil
}

func parseInclude(line string) (string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "@include"))
	path := strings.Trim(rest, `"`)
	if path == "" {
		return "", sleigherr.ParseError{Message: "@include missing path", Excerpt: line}
	}
	return path, nil
}

// expand replaces every $(NAME) substring in line with its defined value.
// A missing name is a fatal error: corrupt spec.
func (p *preprocessor) expand(line string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(line) {
		if line[i] == '$' && i+1 < len(line) && line[i+1] == '(' {
			end := strings.IndexByte(line[i+2:], ')')
			if end < 0 {
				out.WriteString(line[i:])
				break
			}
			name := line[i+2 : i+2+end]
			value, ok := p.defines[name]
			if !ok {
				return "", sleigherr.UndefinedSymbolError{Kind: "define", Name: name}
			}
			out.WriteString(value)
			i = i + 2 + end + 1
			continue
		}
		out.WriteByte(line[i])
		i++
	}
	return out.String(), nil
}

// evalCondition evaluates an @if/@elif expression: defined(NAME),
// NAME == "LIT", &&, ||, and parenthesization.
func (p *preprocessor) evalCondition(expr string) (bool, error) {
	c := &condParser{p: p, s: expr}
	v, err := c.parseOr()
	if err != nil {
		return false, err
	}
	c.skipSpace()
	if c.pos != len(c.s) {
		return false, sleigherr.ParseError{Message: "trailing input in condition", Excerpt: expr}
	}
	return v, nil
}

type condParser struct {
	p   *preprocessor
	s   string
	pos int
}

func (c *condParser) skipSpace() {
	for c.pos < len(c.s) && (c.s[c.pos] == ' ' || c.s[c.pos] == '\t') {
		c.pos++
	}
}

func (c *condParser) hasPrefix(s string) bool {
	c.skipSpace()
	return strings.HasPrefix(c.s[c.pos:], s)
}

func (c *condParser) consume(s string) {
	c.skipSpace()
	c.pos += len(s)
}

func (c *condParser) parseOr() (bool, error) {
	left, err := c.parseAnd()
	if err != nil {
		return false, err
	}
	for {
		if c.hasPrefix("||") {
			c.consume("||")
			right, err := c.parseAnd()
			if err != nil {
				return false, err
			}
			left = left || right
			continue
		}
		break
	}
	return left, nil
}

func (c *condParser) parseAnd() (bool, error) {
	left, err := c.parseAtom()
	if err != nil {
		return false, err
	}
	for {
		if c.hasPrefix("&&") {
			c.consume("&&")
			right, err := c.parseAtom()
			if err != nil {
				return false, err
			}
			left = left && right
			continue
		}
		break
	}
	return left, nil
}

func (c *condParser) parseAtom() (bool, error) {
	if c.hasPrefix("(") {
		c.consume("(")
		v, err := c.parseOr()
		if err != nil {
			return false, err
		}
		if !c.hasPrefix(")") {
			return false, sleigherr.ParseError{Message: "expected ')'", Excerpt: c.s}
		}
		c.consume(")")
		return v, nil
	}
	if c.hasPrefix("defined(") {
		c.consume("defined(")
		name := c.readIdent()
		if !c.hasPrefix(")") {
			return false, sleigherr.ParseError{Message: "expected ')'", Excerpt: c.s}
		}
		c.consume(")")
		_, ok := c.p.defines[name]
		return ok, nil
	}
	name := c.readIdent()
	if name == "" {
		return false, sleigherr.ParseError{Message: "expected condition", Excerpt: c.s[c.pos:]}
	}
	if c.hasPrefix("==") {
		c.consume("==")
		lit := c.readLiteral()
		return c.p.defines[name] == lit, nil
	}
	_, ok := c.p.defines[name]
	return ok, nil
}

func (c *condParser) readIdent() string {
	c.skipSpace()
	start := c.pos
	for c.pos < len(c.s) {
		ch := c.s[c.pos]
		if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			c.pos++
			continue
		}
		break
	}
	return c.s[start:c.pos]
}

func (c *condParser) readLiteral() string {
	c.skipSpace()
	if c.pos < len(c.s) && c.s[c.pos] == '"' {
		start := c.pos
		c.pos++
		for c.pos < len(c.s) && c.s[c.pos] != '"' {
			c.pos++
		}
		if c.pos < len(c.s) {
			c.pos++
		}
		return strings.Trim(c.s[start:c.pos], `"`)
	}
	return c.readIdent()
}
