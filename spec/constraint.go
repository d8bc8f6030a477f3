package spec

// Constraint is the sum type of bit-pattern/semantic predicates attached to
// a Constructor. Matching semantics live in package state, not here — this
// package only carries the tree shape.
type Constraint interface {
	isConstraint()
}

// ConstraintExists asserts that a named field exists, or — when name is a
// sub-table other than "instruction" — that some constructor in that
// table matches.
type ConstraintExists struct {
	Name string
}

func (ConstraintExists) isConstraint() {}

// ConstraintComparison compares a field to a ConstraintRValue.
type ConstraintComparison struct {
	Lhs     string
	NumType NumTypePrefix
	Op      ComparisonOperator
	Rhs     ConstraintRValue
}

func (ConstraintComparison) isConstraint() {}

// ConstraintAnd is a short-circuit conjunction.
type ConstraintAnd struct {
	Left, Right Constraint
}

func (ConstraintAnd) isConstraint() {}

// ConstraintOr is a short-circuit disjunction.
type ConstraintOr struct {
	Left, Right Constraint
}

func (ConstraintOr) isConstraint() {}

// ConstraintSemi is sequential concatenation: Left matches the current
// window, then the window advances by Left's token length before Right is
// evaluated.
type ConstraintSemi struct {
	Left, Right Constraint
}

func (ConstraintSemi) isConstraint() {}

// ConstraintParen is a parenthesized sub-constraint; opaque to the
// precedence rotation pass.
type ConstraintParen struct {
	Inner Constraint
}

func (ConstraintParen) isConstraint() {}

// ConstraintEllipsis is a variable-width wildcard prefix before Inner.
type ConstraintEllipsis struct {
	Inner Constraint
}

func (ConstraintEllipsis) isConstraint() {}

// ConstraintRValue is the sum type of the right-hand side of a
// ConstraintComparison (and the left-hand side of a ConstraintRValueAdd).
type ConstraintRValue interface {
	isConstraintRValue()
}

type ConstraintRValueInteger struct {
	Value int64
}

func (ConstraintRValueInteger) isConstraintRValue() {}

type ConstraintRValueField struct {
	Name string
}

func (ConstraintRValueField) isConstraintRValue() {}

type ConstraintRValueAdd struct {
	Left, Right ConstraintRValue
}

func (ConstraintRValueAdd) isConstraintRValue() {}
