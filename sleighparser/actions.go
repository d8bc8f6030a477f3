package sleighparser

import (
	"sleigh/spec"
	"sleigh/token"
)

func (p *Parser) parseActionBlock() ([]spec.Action, error) {
	if _, err := p.expect(token.LBRACE, "before action block"); err != nil {
		return nil, err
	}
	var actions []spec.Action
	for !p.checkType(token.RBRACE) {
		a, err := p.parseAction()
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	_, err := p.expect(token.RBRACE, "after action block")
	return actions, err
}

func (p *Parser) parseAction() (spec.Action, error) {
	switch {
	case p.isMatch(token.LOCAL):
		return p.parseLocalDecl()
	case p.isMatch(token.EXPORT):
		return p.parseExport()
	case p.isMatch(token.BUILD):
		name, err := p.expectIdent("build target field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI, "after build statement"); err != nil {
			return nil, err
		}
		return spec.ActionBuild{FieldName: name}, nil
	case p.isMatch(token.IF):
		return p.parseIf()
	case p.isMatch(token.GOTO):
		return p.parseGoto()
	case p.isMatch(token.CALL):
		addr, err := p.parseRValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI, "after call statement"); err != nil {
			return nil, err
		}
		return spec.ActionCall{Address: addr}, nil
	case p.isMatch(token.RETURN):
		if p.isMatch(token.SEMI) {
			return spec.ActionReturn{}, nil
		}
		v, err := p.parseRValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI, "after return statement"); err != nil {
			return nil, err
		}
		return spec.ActionReturn{Value: v}, nil
	}

	if p.checkType(token.IDENTIFIER) && p.tokens[p.position+1].Type == token.COLON {
		name := p.advance().Lexeme
		p.advance() // COLON
		return spec.ActionLabel{Name: name}, nil
	}

	return p.parseCallOrAssignment()
}

func (p *Parser) parseLocalDecl() (spec.Action, error) {
	name, err := p.expectIdent("local variable name")
	if err != nil {
		return nil, err
	}
	var size *int
	if p.isMatch(token.COLON) {
		v, err := p.expectInt("local variable size")
		if err != nil {
			return nil, err
		}
		n := int(v)
		size = &n
	}
	if _, err := p.expect(token.ASSIGN, "in local declaration"); err != nil {
		return nil, err
	}
	value, err := p.parseRValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI, "after local declaration"); err != nil {
		return nil, err
	}
	return spec.ActionLocalDecl{Name: spec.LValueIdent{Name: name, Size: size}, Value: value}, nil
}

func (p *Parser) parseExport() (spec.Action, error) {
	v, err := p.parseRValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI, "after export statement"); err != nil {
		return nil, err
	}
	return spec.ActionExport{Value: v}, nil
}

func (p *Parser) parseIf() (spec.Action, error) {
	if _, err := p.expect(token.LPAREN, "before if condition"); err != nil {
		return nil, err
	}
	cond, err := p.parseRValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, "after if condition"); err != nil {
		return nil, err
	}
	body, err := p.parseActionBlock()
	if err != nil {
		return nil, err
	}
	return spec.ActionIf{Cond: cond, Body: body}, nil
}

// parseGoto distinguishes a label goto ("goto done;") from a computed
// address goto ("goto [addr];"), the way Ghidra SLEIGH itself does.
func (p *Parser) parseGoto() (spec.Action, error) {
	if p.isMatch(token.LBRACKET) {
		addr, err := p.parseRValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACKET, "after computed goto address"); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI, "after goto statement"); err != nil {
			return nil, err
		}
		return spec.ActionGoto{Address: addr}, nil
	}
	name, err := p.expectIdent("goto label")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI, "after goto statement"); err != nil {
		return nil, err
	}
	return spec.ActionGoto{Label: &name}, nil
}

// parseCallOrAssignment handles every statement starting with an
// identifier or '*': an assignment to an LValue, or a bare call to a
// pcodeop/macro (resolved to one or the other once every macro
// declaration in the file is known — see resolveMacroCalls).
func (p *Parser) parseCallOrAssignment() (spec.Action, error) {
	if p.checkType(token.STAR) {
		lv, err := p.parseLValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.ASSIGN, "in assignment"); err != nil {
			return nil, err
		}
		value, err := p.parseRValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI, "after assignment"); err != nil {
			return nil, err
		}
		return spec.ActionAssignment{Target: lv, Value: value}, nil
	}

	name, err := p.expectIdent("statement")
	if err != nil {
		return nil, err
	}

	if p.isMatch(token.LPAREN) {
		var args []spec.RValue
		for !p.checkType(token.RPAREN) {
			arg, err := p.parseRValue()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			p.isMatch(token.COMMA)
		}
		if _, err := p.expect(token.RPAREN, "after call argument list"); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI, "after call statement"); err != nil {
			return nil, err
		}
		return spec.ActionPCodeOp{Name: name, Args: args}, nil
	}

	lv, err := p.finishLValue(name)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN, "in assignment"); err != nil {
		return nil, err
	}
	value, err := p.parseRValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI, "after assignment"); err != nil {
		return nil, err
	}
	return spec.ActionAssignment{Target: lv, Value: value}, nil
}

func (p *Parser) parseLValue() (spec.LValue, error) {
	if p.isMatch(token.STAR) {
		var space *string
		if p.isMatch(token.LBRACKET) {
			name, err := p.expectIdent("address space name")
			if err != nil {
				return nil, err
			}
			space = &name
			if _, err := p.expect(token.RBRACKET, "after address space name"); err != nil {
				return nil, err
			}
		}
		var size *int
		if p.isMatch(token.COLON) {
			v, err := p.expectInt("dereference size")
			if err != nil {
				return nil, err
			}
			n := int(v)
			size = &n
		}
		op, err := p.parseUnaryRValue()
		if err != nil {
			return nil, err
		}
		return spec.LValueRef{Space: space, Size: size, Op: op}, nil
	}
	name, err := p.expectIdent("assignment target")
	if err != nil {
		return nil, err
	}
	return p.finishLValue(name)
}

func (p *Parser) finishLValue(name string) (spec.LValue, error) {
	if p.isMatch(token.LBRACKET) {
		offset, err := p.expectInt("slice offset")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COMMA, "between slice offset and size"); err != nil {
			return nil, err
		}
		size, err := p.expectInt("slice size")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACKET, "after slice"); err != nil {
			return nil, err
		}
		return spec.LValueSlice{Name: name, Offset: int(offset), Size: int(size)}, nil
	}
	if p.isMatch(token.COLON) {
		v, err := p.expectInt("lvalue size")
		if err != nil {
			return nil, err
		}
		n := int(v)
		return spec.LValueIdent{Name: name, Size: &n}, nil
	}
	return spec.LValueIdent{Name: name}, nil
}
