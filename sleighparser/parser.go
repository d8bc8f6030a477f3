// Package sleighparser is the recursive-descent builder that turns a
// preprocessed SLEIGH text directly into a *spec.Spec — no separate CST
// layer, mirroring both informatter-nilan's parser.Parser (which builds
// ast.Expression/ast.Stmt directly) and original_source/src/spec/parser.rs's
// "parse straight into the typed tree" structure.
//
// Expression sub-grammars are intentionally flat and left-associative:
// every binary operator at a given syntactic position is folded into the
// same left-leaning chain regardless of its real precedence (spec.md
// §4.B). precedence.FixRValue/FixConstraint repair the shape afterward;
// Parse runs both passes, plus macroexpand.Expand, before returning,
// making explicit the pass ordering original_source/src/spec/parser.rs
// leaves unconnected (see SPEC_FULL.md §6).
package sleighparser

import (
	"fmt"

	"sleigh/lexer"
	"sleigh/macroexpand"
	"sleigh/precedence"
	"sleigh/sleigherr"
	"sleigh/spec"
	"sleigh/token"
)

// Parse builds a *spec.Spec from preprocessed SLEIGH text.
func Parse(text string) (*spec.Spec, error) {
	toks, err := lexer.New("<spec>", text).Scan()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: toks}
	sp := &spec.Spec{Alignment: 1}
	if err := p.parseTopLevel(sp, withContext{table: "instruction"}); err != nil {
		return nil, err
	}
	resolveMacroCalls(sp)

	for i := range sp.Constructors {
		sp.Constructors[i].Constraint = precedence.FixConstraint(sp.Constructors[i].Constraint)
	}
	fixActionRValues(sp)

	if err := macroexpand.Expand(sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// Parser walks a flat token slice, the way informatter-nilan's
// parser.Parser does: a position cursor with peek/previous/advance/isMatch
// helpers.
type Parser struct {
	tokens   []token.Token
	position int
}

func (p *Parser) peek() token.Token { return p.tokens[p.position] }

func (p *Parser) previous() token.Token { return p.tokens[p.position-1] }

func (p *Parser) isFinished() bool { return p.peek().Type == token.EOF }

func (p *Parser) checkType(t token.TokenType) bool {
	return !p.isFinished() && p.peek().Type == t
}

func (p *Parser) advance() token.Token {
	if !p.isFinished() {
		p.position++
	}
	return p.previous()
}

func (p *Parser) isMatch(types ...token.TokenType) bool {
	for _, t := range types {
		if p.checkType(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(t token.TokenType, context string) (token.Token, error) {
	if p.checkType(t) {
		return p.advance(), nil
	}
	cur := p.peek()
	return token.Token{}, sleigherr.ParseError{
		File: "<spec>", Line: cur.Line, Column: cur.Column,
		Excerpt: cur.Lexeme,
		Message: fmt.Sprintf("expected %s %s, found %s %q", t, context, cur.Type, cur.Lexeme),
	}
}

func (p *Parser) expectIdent(context string) (string, error) {
	tok, err := p.expect(token.IDENTIFIER, context)
	if err != nil {
		return "", err
	}
	return tok.Lexeme, nil
}

func (p *Parser) expectInt(context string) (int64, error) {
	tok, err := p.expect(token.INTEGER, context)
	if err != nil {
		return 0, err
	}
	return tok.Literal.(int64), nil
}

// withContext is the read-only, functionally-threaded value a with-block
// contributes to every nested statement (spec.md §4.C, §9 "with-block
// inheritance"): never mutated in place, only copied-and-extended.
type withContext struct {
	table       string
	constraint  spec.Constraint
	hasConstraint bool
	calculations []spec.Calculation
}

func (w withContext) withTable(t string) withContext {
	n := w
	n.table = t
	return n
}

func (w withContext) withConstraint(c spec.Constraint) withContext {
	n := w
	if n.hasConstraint {
		n.constraint = spec.ConstraintAnd{Left: n.constraint, Right: c}
	} else {
		n.constraint = c
	}
	n.hasConstraint = true
	return n
}

func (w withContext) withCalculations(calcs []spec.Calculation) withContext {
	n := w
	n.calculations = append(append([]spec.Calculation{}, w.calculations...), calcs...)
	return n
}

// parseTopLevel parses every definition, attach, macro, with-block and
// constructor until EOF (at depth 0) or a closing brace (inside a nested
// with-block body).
func (p *Parser) parseTopLevel(sp *spec.Spec, ctx withContext) error {
	for !p.isFinished() && !p.checkType(token.RBRACE) {
		if err := p.parseOneTopLevelItem(sp, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseOneTopLevelItem(sp *spec.Spec, ctx withContext) error {
	switch {
	case p.checkType(token.DEFINE):
		return p.parseDefine(sp)
	case p.checkType(token.ATTACH):
		return p.parseAttach(sp)
	case p.checkType(token.MACRO):
		return p.parseMacroDef(sp)
	case p.checkType(token.WITH):
		return p.parseWithBlock(sp, ctx)
	default:
		return p.parseConstructor(sp, ctx)
	}
}

func (p *Parser) parseDefine(sp *spec.Spec) error {
	p.advance() // DEFINE
	switch {
	case p.isMatch(token.ENDIAN):
		if _, err := p.expect(token.ASSIGN, "in endian definition"); err != nil {
			return err
		}
		if p.isMatch(token.BIG) {
			sp.Endianness = spec.BigEndian
		} else if p.isMatch(token.LITTLE) {
			sp.Endianness = spec.LittleEndian
		} else {
			return p.errHere("expected big or little")
		}
		_, err := p.expect(token.SEMI, "after endian definition")
		return err

	case p.isMatch(token.ALIGNMENT):
		if _, err := p.expect(token.ASSIGN, "in alignment definition"); err != nil {
			return err
		}
		v, err := p.expectInt("alignment value")
		if err != nil {
			return err
		}
		sp.Alignment = int(v)
		_, err = p.expect(token.SEMI, "after alignment definition")
		return err

	case p.isMatch(token.SPACE):
		return p.parseSpaceDef(sp)

	case p.isMatch(token.TOKEN):
		return p.parseTokenDef(sp)

	case p.isMatch(token.CONTEXT):
		return p.parseContextDef(sp)

	case p.isMatch(token.PCODEOP):
		name, err := p.expectIdent("pcodeop name")
		if err != nil {
			return err
		}
		sp.PCodeOps = append(sp.PCodeOps, spec.PCodeOp{Name: name})
		_, err = p.expect(token.SEMI, "after pcodeop definition")
		return err

	default:
		if p.checkType(token.IDENTIFIER) && p.peek().Lexeme == "register" {
			p.advance()
			return p.parseRegisterDef(sp)
		}
		return p.errHere("unknown define directive")
	}
}

func (p *Parser) parseSpaceDef(sp *spec.Spec) error {
	name, err := p.expectIdent("space name")
	if err != nil {
		return err
	}
	space := spec.Space{Name: name, WordSize: 1}
	for !p.checkType(token.SEMI) && !p.isFinished() {
		switch {
		case p.isMatch(token.RAM_SPACE):
			space.Type = spec.RAMSpace
		case p.isMatch(token.ROM_SPACE):
			space.Type = spec.ROMSpace
		case p.isMatch(token.REGISTER_SPACE):
			space.Type = spec.RegisterSpace
		case p.isMatch(token.DEFAULT):
			space.Default = true
		case p.isMatch(token.SIZE):
			if _, err := p.expect(token.ASSIGN, "in space size"); err != nil {
				return err
			}
			v, err := p.expectInt("space size")
			if err != nil {
				return err
			}
			space.AddressSize = int(v)
		case p.isMatch(token.WORDSIZE):
			if _, err := p.expect(token.ASSIGN, "in space wordsize"); err != nil {
				return err
			}
			v, err := p.expectInt("space wordsize")
			if err != nil {
				return err
			}
			space.WordSize = int(v)
		default:
			return p.errHere("unexpected token in space definition")
		}
	}
	if _, err := p.expect(token.SEMI, "after space definition"); err != nil {
		return err
	}
	return p.registerSpace(sp, space)
}

// registerSpace validates the "at most one default" invariant and appends
// space to out.Spaces.
func (p *Parser) registerSpace(out *spec.Spec, space spec.Space) error {
	if space.Default {
		for _, s := range out.Spaces {
			if s.Default {
				return sleigherr.InconsistentSpecError{Message: "more than one default space declared"}
			}
		}
	}
	out.Spaces = append(out.Spaces, space)
	return nil
}

func (p *Parser) parseRegisterDef(sp *spec.Spec) error {
	var offset, size int64
	for !p.checkType(token.LBRACKET) {
		switch {
		case p.checkType(token.IDENTIFIER) && p.peek().Lexeme == "offset":
			p.advance()
			if _, err := p.expect(token.ASSIGN, "in register offset"); err != nil {
				return err
			}
			v, err := p.expectInt("register offset")
			if err != nil {
				return err
			}
			offset = v
		case p.isMatch(token.SIZE):
			if _, err := p.expect(token.ASSIGN, "in register size"); err != nil {
				return err
			}
			v, err := p.expectInt("register size")
			if err != nil {
				return err
			}
			size = v
		default:
			return p.errHere("unexpected token in register definition")
		}
	}
	if _, err := p.expect(token.LBRACKET, "before register name list"); err != nil {
		return err
	}
	cur := offset
	for !p.checkType(token.RBRACKET) {
		name, err := p.expectIdent("register name")
		if err != nil {
			return err
		}
		sp.Registers = append(sp.Registers, spec.Register{Name: name, Offset: int(cur), Size: int(size)})
		cur += size
		p.isMatch(token.COMMA)
	}
	if _, err := p.expect(token.RBRACKET, "after register name list"); err != nil {
		return err
	}
	_, err := p.expect(token.SEMI, "after register definition")
	return err
}

func (p *Parser) parseTokenDef(sp *spec.Spec) error {
	name, err := p.expectIdent("token name")
	if err != nil {
		return err
	}
	if _, err := p.expect(token.LPAREN, "before token size"); err != nil {
		return err
	}
	bits, err := p.expectInt("token size")
	if err != nil {
		return err
	}
	if _, err := p.expect(token.RPAREN, "after token size"); err != nil {
		return err
	}
	tok := spec.Token{Name: name, Size: int(bits)}
	for !p.checkType(token.SEMI) && !p.isFinished() {
		field, err := p.parseBitField()
		if err != nil {
			return err
		}
		tok.Fields = append(tok.Fields, spec.TokenField{
			Name: field.Name, Start: field.Start, End: field.End,
			Signed: field.Signed, Display: field.Display, Meaning: field.Meaning,
		})
	}
	if _, err := p.expect(token.SEMI, "after token definition"); err != nil {
		return err
	}
	sp.Tokens = append(sp.Tokens, tok)
	return nil
}

// bitField is the shape shared by TokenField and ContextField at parse
// time; parseBitField fills the fields common to both, leaving Flow (only
// meaningful for ContextField) for the caller to set.
type bitField struct {
	Name    string
	Start   int
	End     int
	Signed  bool
	Display spec.FieldDisplay
	Meaning spec.FieldMeaning
	Flow    bool
}

func (p *Parser) parseBitField() (bitField, error) {
	name, err := p.expectIdent("field name")
	if err != nil {
		return bitField{}, err
	}
	if _, err := p.expect(token.ASSIGN, "in field definition"); err != nil {
		return bitField{}, err
	}
	if _, err := p.expect(token.LPAREN, "before field bit range"); err != nil {
		return bitField{}, err
	}
	lo, err := p.expectInt("field start bit")
	if err != nil {
		return bitField{}, err
	}
	if _, err := p.expect(token.COMMA, "between field bit range bounds"); err != nil {
		return bitField{}, err
	}
	hi, err := p.expectInt("field end bit")
	if err != nil {
		return bitField{}, err
	}
	if _, err := p.expect(token.RPAREN, "after field bit range"); err != nil {
		return bitField{}, err
	}
	f := bitField{Name: name, Start: int(lo), End: int(hi), Flow: true}
	for {
		switch {
		case p.isMatch(token.SIGNED):
			f.Signed = true
		case p.isMatch(token.HEX):
			f.Display = spec.DisplayHex
		case p.isMatch(token.DEC):
			f.Display = spec.DisplayDecimal
		case p.isMatch(token.NOFLOW):
			f.Flow = false
		default:
			return f, nil
		}
	}
}

func (p *Parser) parseContextDef(sp *spec.Spec) error {
	register, err := p.expectIdent("context register name")
	if err != nil {
		return err
	}
	ctx := spec.Context{Register: register}
	for !p.checkType(token.SEMI) && !p.isFinished() {
		field, err := p.parseBitField()
		if err != nil {
			return err
		}
		ctx.Fields = append(ctx.Fields, spec.ContextField{
			Name: field.Name, Start: field.Start, End: field.End,
			Signed: field.Signed, Display: field.Display, Meaning: field.Meaning, Flow: field.Flow,
		})
	}
	if _, err := p.expect(token.SEMI, "after context definition"); err != nil {
		return err
	}
	sp.Contexts = append(sp.Contexts, ctx)
	return nil
}

func (p *Parser) parseAttach(sp *spec.Spec) error {
	p.advance() // ATTACH
	var kind spec.FieldMeaningKind
	switch {
	case p.isMatch(token.VARIABLES):
		kind = spec.MeaningVariables
	case p.isMatch(token.VALUES):
		kind = spec.MeaningValues
	case p.isMatch(token.NAMES):
		kind = spec.MeaningNames
	default:
		return p.errHere("expected variables, values or names after attach")
	}

	fieldNames, err := p.parseIdentList()
	if err != nil {
		return err
	}

	meaning := spec.FieldMeaning{Kind: kind}
	if _, err := p.expect(token.LPAREN, "before attach value list"); err != nil {
		return err
	}
	for !p.checkType(token.RPAREN) {
		switch kind {
		case spec.MeaningVariables:
			name, err := p.expectIdent("attached register name")
			if err != nil {
				return err
			}
			meaning.Variables = append(meaning.Variables, name)
		case spec.MeaningValues:
			v, err := p.expectInt("attached value")
			if err != nil {
				return err
			}
			meaning.Values = append(meaning.Values, v)
		case spec.MeaningNames:
			tok, err := p.expect(token.STRING, "attached name")
			if err != nil {
				return err
			}
			meaning.Names = append(meaning.Names, tok.Literal.(string))
		}
		p.isMatch(token.COMMA)
	}
	if _, err := p.expect(token.RPAREN, "after attach value list"); err != nil {
		return err
	}
	if _, err := p.expect(token.SEMI, "after attach statement"); err != nil {
		return err
	}

	for _, name := range fieldNames {
		if field, _ := sp.FindTokenField(name); field != nil {
			field.Meaning = meaning
			continue
		}
		if field, _ := sp.FindContextField(name); field != nil {
			field.Meaning = meaning
			continue
		}
		return sleigherr.InconsistentSpecError{Message: fmt.Sprintf("attach names non-existent field %q", name)}
	}
	return nil
}

func (p *Parser) parseIdentList() ([]string, error) {
	if _, err := p.expect(token.LPAREN, "before field name list"); err != nil {
		return nil, err
	}
	var names []string
	for !p.checkType(token.RPAREN) {
		name, err := p.expectIdent("field name")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		p.isMatch(token.COMMA)
	}
	if _, err := p.expect(token.RPAREN, "after field name list"); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *Parser) parseMacroDef(sp *spec.Spec) error {
	p.advance() // MACRO
	name, err := p.expectIdent("macro name")
	if err != nil {
		return err
	}
	if _, err := p.expect(token.LPAREN, "before macro parameter list"); err != nil {
		return err
	}
	var params []string
	for !p.checkType(token.RPAREN) {
		param, err := p.expectIdent("macro parameter")
		if err != nil {
			return err
		}
		params = append(params, param)
		p.isMatch(token.COMMA)
	}
	if _, err := p.expect(token.RPAREN, "after macro parameter list"); err != nil {
		return err
	}
	body, err := p.parseActionBlock()
	if err != nil {
		return err
	}
	sp.Macros = append(sp.Macros, spec.Macro{Name: name, Params: params, Body: body})
	return nil
}

func (p *Parser) parseWithBlock(sp *spec.Spec, ctx withContext) error {
	p.advance() // WITH
	table := ctx.table
	if p.checkType(token.IDENTIFIER) {
		table, _ = p.expectIdent("with-block table name")
	}
	if _, err := p.expect(token.COLON, "in with-block header"); err != nil {
		return err
	}
	cst, err := p.parseConstraint()
	if err != nil {
		return err
	}
	nested := ctx.withTable(table).withConstraint(cst)

	if p.checkType(token.LBRACE) && p.braceIntroducesCalculations() {
		calcs, err := p.parseCalculationBlock()
		if err != nil {
			return err
		}
		nested = nested.withCalculations(calcs)
	}

	if _, err := p.expect(token.LBRACE, "before with-block body"); err != nil {
		return err
	}
	if err := p.parseTopLevel(sp, nested); err != nil {
		return err
	}
	_, err = p.expect(token.RBRACE, "after with-block body")
	return err
}

// braceIntroducesCalculations disambiguates a with-block/constructor's
// optional `{ calculations }` block from its mandatory `{ actions }`
// block: a calculation block is only present when a second `{` follows
// the constraint/header and is itself followed eventually by another
// `{...}` body — SLEIGH constructors have at most one calculation block,
// always immediately before the action body.
func (p *Parser) braceIntroducesCalculations() bool {
	// Lookahead: scan forward from the current '{' to find its matching
	// '}', then check whether the next token after that is itself '{'.
	depth := 0
	i := p.position
	for i < len(p.tokens) {
		switch p.tokens[i].Type {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
			if depth == 0 {
				return i+1 < len(p.tokens) && p.tokens[i+1].Type == token.LBRACE
			}
		}
		i++
	}
	return false
}

func (p *Parser) parseCalculationBlock() ([]spec.Calculation, error) {
	if _, err := p.expect(token.LBRACE, "before calculation block"); err != nil {
		return nil, err
	}
	var calcs []spec.Calculation
	for !p.checkType(token.RBRACE) {
		lv, err := p.parseLValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.ASSIGN, "in calculation"); err != nil {
			return nil, err
		}
		rv, err := p.parseRValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI, "after calculation"); err != nil {
			return nil, err
		}
		calcs = append(calcs, spec.Calculation{Target: lv, Value: rv})
	}
	_, err := p.expect(token.RBRACE, "after calculation block")
	return calcs, err
}

func (p *Parser) parseConstructor(sp *spec.Spec, ctx withContext) error {
	table := ctx.table
	if p.checkType(token.IDENTIFIER) {
		table, _ = p.expectIdent("constructor table name")
	}
	if _, err := p.expect(token.COLON, "in constructor header"); err != nil {
		return err
	}
	mnemonic := ""
	if p.checkType(token.IDENTIFIER) {
		mnemonic, _ = p.expectIdent("constructor mnemonic")
	}
	if _, err := p.expect(token.IS, "in constructor header"); err != nil {
		return err
	}
	cst, err := p.parseConstraint()
	if err != nil {
		return err
	}

	var calcs []spec.Calculation
	if p.checkType(token.LBRACE) && p.braceIntroducesCalculations() {
		calcs, err = p.parseCalculationBlock()
		if err != nil {
			return err
		}
	}

	actions, err := p.parseActionBlock()
	if err != nil {
		return err
	}

	finalConstraint := cst
	if ctx.hasConstraint {
		finalConstraint = spec.ConstraintAnd{Left: ctx.constraint, Right: cst}
	}
	finalCalcs := append(append([]spec.Calculation{}, ctx.calculations...), calcs...)

	sp.Constructors = append(sp.Constructors, spec.Constructor{
		Header:       spec.TableHeader{Table: table, Mnemonic: mnemonic},
		Constraint:   finalConstraint,
		Calculations: finalCalcs,
		Actions:      actions,
	})
	return nil
}

func (p *Parser) errHere(message string) error {
	cur := p.peek()
	return sleigherr.ParseError{
		File: "<spec>", Line: cur.Line, Column: cur.Column,
		Excerpt: cur.Lexeme, Message: message,
	}
}

// resolveMacroCalls converts every ActionPCodeOp whose name matches a
// declared Macro into an ActionMacroCall: the grammar cannot distinguish
// the two lexically (both are `name(args);`), so resolution happens once
// every macro declaration is known, the way a symbol table would resolve
// it in a multi-pass compiler.
func resolveMacroCalls(sp *spec.Spec) {
	isMacro := make(map[string]bool, len(sp.Macros))
	for _, m := range sp.Macros {
		isMacro[m.Name] = true
	}
	for i := range sp.Constructors {
		sp.Constructors[i].Actions = resolveActions(sp.Constructors[i].Actions, isMacro)
	}
	for i := range sp.Macros {
		sp.Macros[i].Body = resolveActions(sp.Macros[i].Body, isMacro)
	}
}

func resolveActions(actions []spec.Action, isMacro map[string]bool) []spec.Action {
	out := make([]spec.Action, len(actions))
	for i, a := range actions {
		switch v := a.(type) {
		case spec.ActionPCodeOp:
			if isMacro[v.Name] {
				out[i] = spec.ActionMacroCall{Name: v.Name, Args: v.Args}
			} else {
				out[i] = v
			}
		case spec.ActionIf:
			out[i] = spec.ActionIf{Cond: v.Cond, Body: resolveActions(v.Body, isMacro)}
		default:
			out[i] = a
		}
	}
	return out
}

// fixActionRValues runs precedence.FixRValue over every RValue embedded in
// a constructor's calculations and actions (the expression grammar, unlike
// the constraint grammar, nests inside statements rather than forming the
// constructor's own top-level tree).
func fixActionRValues(sp *spec.Spec) {
	for i := range sp.Constructors {
		c := &sp.Constructors[i]
		for j := range c.Calculations {
			c.Calculations[j].Value = precedence.FixRValue(c.Calculations[j].Value)
		}
		c.Actions = fixActions(c.Actions)
	}
	for i := range sp.Macros {
		sp.Macros[i].Body = fixActions(sp.Macros[i].Body)
	}
}

func fixActions(actions []spec.Action) []spec.Action {
	out := make([]spec.Action, len(actions))
	for i, a := range actions {
		switch v := a.(type) {
		case spec.ActionLocalDecl:
			out[i] = spec.ActionLocalDecl{Name: v.Name, Value: precedence.FixRValue(v.Value)}
		case spec.ActionExport:
			out[i] = spec.ActionExport{Value: precedence.FixRValue(v.Value)}
		case spec.ActionAssignment:
			out[i] = spec.ActionAssignment{Target: v.Target, Value: precedence.FixRValue(v.Value)}
		case spec.ActionIf:
			out[i] = spec.ActionIf{Cond: precedence.FixRValue(v.Cond), Body: fixActions(v.Body)}
		case spec.ActionGoto:
			if v.Address != nil {
				out[i] = spec.ActionGoto{Address: precedence.FixRValue(v.Address)}
			} else {
				out[i] = v
			}
		case spec.ActionMacroCall:
			out[i] = spec.ActionMacroCall{Name: v.Name, Args: fixRValueSlice(v.Args)}
		case spec.ActionPCodeOp:
			out[i] = spec.ActionPCodeOp{Name: v.Name, Args: fixRValueSlice(v.Args)}
		case spec.ActionCall:
			out[i] = spec.ActionCall{Address: precedence.FixRValue(v.Address)}
		case spec.ActionReturn:
			if v.Value != nil {
				out[i] = spec.ActionReturn{Value: precedence.FixRValue(v.Value)}
			} else {
				out[i] = v
			}
		default:
			out[i] = a
		}
	}
	return out
}

func fixRValueSlice(rs []spec.RValue) []spec.RValue {
	out := make([]spec.RValue, len(rs))
	for i, r := range rs {
		out[i] = precedence.FixRValue(r)
	}
	return out
}
