package sleighparser

import (
	"sleigh/spec"
	"sleigh/token"
)

// parseConstraint parses a flat, left-associative chain over primary
// constraints joined by &&, ||, and ; — the same naive-then-corrected
// approach as parseRValue.
func (p *Parser) parseConstraint() (spec.Constraint, error) {
	left, err := p.parsePrimaryConstraint()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isMatch(token.AND_AND):
			right, err := p.parsePrimaryConstraint()
			if err != nil {
				return nil, err
			}
			left = spec.ConstraintAnd{Left: left, Right: right}
		case p.isMatch(token.OR_OR):
			right, err := p.parsePrimaryConstraint()
			if err != nil {
				return nil, err
			}
			left = spec.ConstraintOr{Left: left, Right: right}
		case p.isMatch(token.SEMI):
			right, err := p.parsePrimaryConstraint()
			if err != nil {
				return nil, err
			}
			left = spec.ConstraintSemi{Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parsePrimaryConstraint() (spec.Constraint, error) {
	if p.isMatch(token.ELLIPSIS) {
		inner, err := p.parsePrimaryConstraint()
		if err != nil {
			return nil, err
		}
		return spec.ConstraintEllipsis{Inner: inner}, nil
	}
	if p.isMatch(token.LPAREN) {
		inner, err := p.parseConstraint()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "after parenthesized constraint"); err != nil {
			return nil, err
		}
		return spec.ConstraintParen{Inner: inner}, nil
	}

	name, err := p.expectIdent("field or sub-table name")
	if err != nil {
		return nil, err
	}

	numType, op, ok := p.peekComparisonOp()
	if !ok {
		return spec.ConstraintExists{Name: name}, nil
	}
	p.advance()
	rhs, err := p.parseConstraintRValue()
	if err != nil {
		return nil, err
	}
	return spec.ConstraintComparison{Lhs: name, NumType: numType, Op: op, Rhs: rhs}, nil
}

// peekComparisonOp mirrors peekBinaryRValueOp's optional "s"/"f" numeric
// type prefix convention for constraint comparisons.
func (p *Parser) peekComparisonOp() (spec.NumTypePrefix, spec.ComparisonOperator, bool) {
	numType := spec.NumTypeDefault
	idx := p.position
	if idx < len(p.tokens) && p.tokens[idx].Type == token.IDENTIFIER {
		switch p.tokens[idx].Lexeme {
		case "s":
			numType = spec.NumTypeSigned
			idx++
		case "f":
			numType = spec.NumTypeFloat
			idx++
		}
	}
	if idx >= len(p.tokens) {
		return numType, 0, false
	}
	var op spec.ComparisonOperator
	switch p.tokens[idx].Type {
	case token.ASSIGN, token.EQUAL:
		op = spec.CmpEqual
	case token.NOT_EQUAL:
		op = spec.CmpNotEqual
	case token.LESS:
		op = spec.CmpLess
	case token.LESS_EQ:
		op = spec.CmpLessEqual
	case token.GREATER:
		op = spec.CmpGreater
	case token.GREATER_EQ:
		op = spec.CmpGreaterEqual
	default:
		return numType, 0, false
	}
	p.position = idx
	return numType, op, true
}

func (p *Parser) parseConstraintRValue() (spec.ConstraintRValue, error) {
	left, err := p.parseConstraintRValueTerm()
	if err != nil {
		return nil, err
	}
	for p.isMatch(token.PLUS) {
		right, err := p.parseConstraintRValueTerm()
		if err != nil {
			return nil, err
		}
		left = spec.ConstraintRValueAdd{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseConstraintRValueTerm() (spec.ConstraintRValue, error) {
	if p.checkType(token.INTEGER) {
		tok := p.advance()
		return spec.ConstraintRValueInteger{Value: tok.Literal.(int64)}, nil
	}
	name, err := p.expectIdent("constraint value")
	if err != nil {
		return nil, err
	}
	return spec.ConstraintRValueField{Name: name}, nil
}
