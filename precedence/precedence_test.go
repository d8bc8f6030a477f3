package precedence_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sleigh/precedence"
	"sleigh/spec"
)

func ident(name string) spec.RValue { return spec.RValueIdent{Name: name} }

// "a & b | c" parsed flat left-to-right folds "by accident" into the
// already-correct shape: (a & b) | c, since | binds looser than &.
func TestFixRValue_AndThenOr_AlreadyCorrect(t *testing.T) {
	naive := spec.RValueIntOr{
		Left:  spec.RValueIntAnd{Left: ident("a"), Right: ident("b")},
		Right: ident("c"),
	}
	fixed := precedence.FixRValue(naive)
	require.Equal(t, naive, fixed)
}

// "a | b & c" parsed flat folds into (a | b) & c, which is wrong: & binds
// tighter than |, so it must become a | (b & c).
func TestFixRValue_OrThenAnd_Rotates(t *testing.T) {
	naive := spec.RValueIntAnd{
		Left:  spec.RValueIntOr{Left: ident("a"), Right: ident("b")},
		Right: ident("c"),
	}
	want := spec.RValueIntOr{
		Left:  ident("a"),
		Right: spec.RValueIntAnd{Left: ident("b"), Right: ident("c")},
	}
	require.Equal(t, want, precedence.FixRValue(naive))
}

// A three-level chain built flat ("a + b * c - d") must fully re-associate,
// not just rotate one level.
func TestFixRValue_DeepChain(t *testing.T) {
	// naive flat fold of "a + b * c - d":
	// parse order: (((a + b) * c) - d)
	naive := spec.RValueSub{
		Left: spec.RValueMult{
			Left:  spec.RValueAdd{Left: ident("a"), Right: ident("b")},
			Right: ident("c"),
		},
		Right: ident("d"),
	}
	want := spec.RValueSub{
		Left: spec.RValueAdd{
			Left:  ident("a"),
			Right: spec.RValueMult{Left: ident("b"), Right: ident("c")},
		},
		Right: ident("d"),
	}
	require.Equal(t, want, precedence.FixRValue(naive))
}

func TestFixRValue_IsFixedPoint(t *testing.T) {
	naive := spec.RValueIntAnd{
		Left:  spec.RValueIntOr{Left: ident("a"), Right: ident("b")},
		Right: ident("c"),
	}
	once := precedence.FixRValue(naive)
	twice := precedence.FixRValue(once)
	require.Equal(t, once, twice)
}

func TestFixRValue_UnaryRecursesIntoInner(t *testing.T) {
	naive := spec.RValueNot{Inner: spec.RValueIntAnd{
		Left:  spec.RValueIntOr{Left: ident("a"), Right: ident("b")},
		Right: ident("c"),
	}}
	want := spec.RValueNot{Inner: spec.RValueIntOr{
		Left:  ident("a"),
		Right: spec.RValueIntAnd{Left: ident("b"), Right: ident("c")},
	}}
	require.Equal(t, want, precedence.FixRValue(naive))
}

// "a=1 || b=2 && c=3" folds flat into (a=1 || b=2) && c=3, which is wrong:
// && (14) binds tighter than || (16), so it becomes a=1 || (b=2 && c=3).
func TestFixConstraint_OrThenAnd_Rotates(t *testing.T) {
	naive := spec.ConstraintAnd{
		Left: spec.ConstraintOr{
			Left:  spec.ConstraintComparison{Lhs: "a", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 1}},
			Right: spec.ConstraintComparison{Lhs: "b", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 2}},
		},
		Right: spec.ConstraintComparison{Lhs: "c", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 3}},
	}
	want := spec.ConstraintOr{
		Left: spec.ConstraintComparison{Lhs: "a", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 1}},
		Right: spec.ConstraintAnd{
			Left:  spec.ConstraintComparison{Lhs: "b", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 2}},
			Right: spec.ConstraintComparison{Lhs: "c", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 3}},
		},
	}
	require.Equal(t, want, precedence.FixConstraint(naive))
}

// Semi binds loosest of all (17): "a=1; b=2 || c=3" must keep Or nested on
// the right of Semi, never rotate Semi's own operands.
func TestFixConstraint_SemiBindsLoosest(t *testing.T) {
	naive := spec.ConstraintSemi{
		Left: spec.ConstraintComparison{Lhs: "a", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 1}},
		Right: spec.ConstraintOr{
			Left:  spec.ConstraintComparison{Lhs: "b", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 2}},
			Right: spec.ConstraintComparison{Lhs: "c", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 3}},
		},
	}
	require.Equal(t, naive, precedence.FixConstraint(naive))
}
