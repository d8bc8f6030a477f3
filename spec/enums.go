package spec

// NumTypePrefix is the optional numeric-type annotation carried by a subset
// of binary r-value operators (Add, Sub, Mult, Div, Rem, RShift) and by
// Comparison. It is not present on LShift or the bitwise/logical operators
// — see DESIGN.md's "NumTypePrefix placement" entry, grounded on
// original_source/src/spec/rvalue/mod.rs rather than spec.md's looser
// prose.
type NumTypePrefix int

const (
	NumTypeDefault NumTypePrefix = iota
	NumTypeSigned
	NumTypeFloat
)

// ComparisonOperator is the relational operator carried by an r-value
// Comparison node and by a constraint Comparison node.
type ComparisonOperator int

const (
	CmpEqual ComparisonOperator = iota
	CmpNotEqual
	CmpLess
	CmpLessEqual
	CmpGreater
	CmpGreaterEqual
)
