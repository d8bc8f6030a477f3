package state

import (
	"math/big"

	"sleigh/spec"
)

// MatchConstructor returns the first constructor (in declaration order)
// belonging to table whose constraint matches s's current byte window. An
// empty table defaults to "instruction". It returns (nil, nil) — not an
// error — when no constructor matches: the matcher never fails, per
// spec.md §7.
func (s *State) MatchConstructor(table string) (*spec.Constructor, error) {
	if table == "" {
		table = "instruction"
	}
	c, _ := matchInTable(s.Spec, table, s)
	return c, nil
}

func matchInTable(sp *spec.Spec, table string, s *State) (*spec.Constructor, bool) {
	for i := range sp.Constructors {
		c := &sp.Constructors[i]
		if c.Header.Table != table {
			continue
		}
		if matches(c.Constraint, s) {
			return c, true
		}
	}
	return nil, false
}

// matches implements Constraint.matches from spec.md §4.G, including
// real (non-stubbed) Ellipsis search — see DESIGN.md's "Ellipsis / Semi /
// Or / Parenthesized length" resolution.
func matches(c spec.Constraint, s *State) bool {
	switch v := c.(type) {
	case spec.ConstraintExists:
		if v.Name != "instruction" && s.Spec.HasTable(v.Name) {
			_, ok := matchInTable(s.Spec, v.Name, s)
			return ok
		}
		return true

	case spec.ConstraintComparison:
		lhs, ok := s.FieldValue(v.Lhs)
		if !ok {
			return false
		}
		rhs, ok := evalConstraintRValue(v.Rhs, s)
		if !ok {
			return false
		}
		return compareOp(lhs, rhs, v.Op)

	case spec.ConstraintAnd:
		return matches(v.Left, s) && matches(v.Right, s)

	case spec.ConstraintOr:
		return matches(v.Left, s) || matches(v.Right, s)

	case spec.ConstraintSemi:
		if !matches(v.Left, s) {
			return false
		}
		n, ok := lengthOf(v.Left, s)
		if !ok || len(s.Code) < n {
			return false
		}
		return matches(v.Right, s.withCode(s.Code[n:]))

	case spec.ConstraintParen:
		return matches(v.Inner, s)

	case spec.ConstraintEllipsis:
		for offset := 0; offset <= len(s.Code); offset++ {
			if matches(v.Inner, s.withCode(s.Code[offset:])) {
				return true
			}
		}
		return false
	}
	return false
}

// lengthOf is Constraint.Len from spec.md §4.G: the byte width implied by
// the fields referenced on the (matching) side of a sequencing operator,
// used by Semi to advance its window. And, Or and Semi all take Left's
// length; for Or this holds even when only the Right branch matched —
// see DESIGN.md resolution #3.
func lengthOf(c spec.Constraint, s *State) (int, bool) {
	switch v := c.(type) {
	case spec.ConstraintExists:
		if v.Name != "instruction" && s.Spec.HasTable(v.Name) {
			sub, ok := matchInTable(s.Spec, v.Name, s)
			if !ok {
				return 0, false
			}
			return lengthOf(sub.Constraint, s)
		}
		return s.TokenLen(v.Name)

	case spec.ConstraintComparison:
		return s.TokenLen(v.Lhs)

	case spec.ConstraintAnd:
		return lengthOf(v.Left, s)

	case spec.ConstraintOr:
		return lengthOf(v.Left, s)

	case spec.ConstraintSemi:
		return lengthOf(v.Left, s)

	case spec.ConstraintParen:
		return lengthOf(v.Inner, s)

	case spec.ConstraintEllipsis:
		for offset := 0; offset <= len(s.Code); offset++ {
			advanced := s.withCode(s.Code[offset:])
			if matches(v.Inner, advanced) {
				innerLen, ok := lengthOf(v.Inner, advanced)
				if !ok {
					return 0, false
				}
				return offset + innerLen, true
			}
		}
		return 0, false
	}
	return 0, false
}

func evalConstraintRValue(c spec.ConstraintRValue, s *State) (*big.Int, bool) {
	switch v := c.(type) {
	case spec.ConstraintRValueInteger:
		return big.NewInt(v.Value), true
	case spec.ConstraintRValueField:
		return s.FieldValue(v.Name)
	case spec.ConstraintRValueAdd:
		l, ok := evalConstraintRValue(v.Left, s)
		if !ok {
			return nil, false
		}
		r, ok := evalConstraintRValue(v.Right, s)
		if !ok {
			return nil, false
		}
		return new(big.Int).Add(l, r), true
	}
	return nil, false
}

// compareOp implements all six ComparisonOperator variants — a complete
// extension of original_source/src/spec/constraint/matches.rs, which only
// special-cases equality (see DESIGN.md resolution #4).
func compareOp(lhs, rhs *big.Int, op spec.ComparisonOperator) bool {
	c := lhs.Cmp(rhs)
	switch op {
	case spec.CmpEqual:
		return c == 0
	case spec.CmpNotEqual:
		return c != 0
	case spec.CmpLess:
		return c < 0
	case spec.CmpLessEqual:
		return c <= 0
	case spec.CmpGreater:
		return c > 0
	case spec.CmpGreaterEqual:
		return c >= 0
	}
	return false
}
