package spec

// TableHeader names the table a Constructor belongs to and the mnemonic
// printed for it. An empty Table defaults to "instruction" unless an
// enclosing with-block supplies one.
type TableHeader struct {
	Table    string
	Mnemonic string
}

// Calculation is a disassembly-time assignment evaluated before the
// constructor's Actions run (e.g. `reloc = inst_start + 4;`).
type Calculation struct {
	Target LValue
	Value  RValue
}

// Constructor is a single pattern/action rule: a bit/semantic Constraint
// tree, an ordered list of Calculations, and an ordered list of Actions.
// Multiple constructors may share a table name; the first one (in
// declaration order) whose Constraint matches wins.
type Constructor struct {
	Header       TableHeader
	Constraint   Constraint
	Calculations []Calculation
	Actions      []Action
}

// Macro is a named, parameterized sequence of Actions inlined into every
// constructor that invokes it via an Action.MacroCall.
type Macro struct {
	Name   string
	Params []string
	Body   []Action
}
