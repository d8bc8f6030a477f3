// Package sleigherr defines the error taxonomy for the sleigh compiler
// front-end: every error here is fatal to the operation that produced it
// (this is a compiler front-end for a spec file shipped with the product;
// malformed input is a bug, not a runtime condition to recover from).
//
// Errors follow cmd/sleighctl's emoji-tagged convention: 💥 marks an error
// whose cause is in the SLEIGH source the caller handed us; 🤖 marks an
// internal invariant violation that should never happen given a
// successfully-parsed Spec.
package sleigherr

import "fmt"

// IoError wraps a failure to open or read an included file.
type IoError struct {
	Path string
	Err  error
}

func (e IoError) Error() string {
	return fmt.Sprintf("💥 sleigh: cannot read %q: %v", e.Path, e.Err)
}

func (e IoError) Unwrap() error { return e.Err }

// LexError reports a tokenization failure at a specific source position.
type LexError struct {
	File    string
	Line    int
	Column  int
	Excerpt string
	Message string
}

func (e LexError) Error() string {
	return fmt.Sprintf("💥 sleigh lex error: %s:%d:%d - %s\n\t%s",
		e.File, e.Line, e.Column, e.Message, e.Excerpt)
}

// ParseError reports a grammar-level rejection at a specific source
// position.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Excerpt string
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("💥 sleigh parse error: %s:%d:%d - %s\n\t%s",
		e.File, e.Line, e.Column, e.Message, e.Excerpt)
}

// UndefinedMacroError reports an Action.MacroCall referencing a macro name
// with no matching definition. An undefined preprocessor `$(NAME)` is
// reported as an UndefinedSymbolError of kind "define" instead.
type UndefinedMacroError struct {
	Name string
}

func (e UndefinedMacroError) Error() string {
	return fmt.Sprintf("💥 sleigh: undefined macro %q", e.Name)
}

// UndefinedSymbolError reports a reference (field, register, table) with
// no matching declaration.
type UndefinedSymbolError struct {
	Kind string // "field", "register", "table", "define", ...
	Name string
}

func (e UndefinedSymbolError) Error() string {
	return fmt.Sprintf("💥 sleigh: undefined %s %q", e.Kind, e.Name)
}

// InconsistentSpecError reports a semantic contradiction in an otherwise
// syntactically valid spec: two default spaces, duplicate names where
// uniqueness is required, an attach naming a non-existent field, and so
// on.
type InconsistentSpecError struct {
	Message string
}

func (e InconsistentSpecError) Error() string {
	return fmt.Sprintf("💥 sleigh: inconsistent spec: %s", e.Message)
}

// OutOfRangeError reports an integer literal that does not fit its
// destination width.
type OutOfRangeError struct {
	Value int64
	Bits  int
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("💥 sleigh: value %d does not fit in %d bits", e.Value, e.Bits)
}

// InternalError marks a condition that a correctly functioning compiler
// should never reach given a Spec that already passed parsing — e.g. a
// type switch over a closed sum type falling through to an unhandled
// variant.
type InternalError struct {
	Message string
}

func (e InternalError) Error() string {
	return fmt.Sprintf("🤖 sleigh internal error: %s", e.Message)
}
