// Package macroexpand inlines action-level macro calls into the
// constructors that invoke them, α-renaming every locally-introduced name
// (parameters, labels, LocalDecl targets) so that no two expansions ever
// collide, per spec.md §4.E. Grounded on
// original_source/src/spec/rvalue/rename.rs for the deep-walk renaming
// logic.
package macroexpand

import (
	"fmt"
	"sync/atomic"

	"sleigh/sleigherr"
	"sleigh/spec"
)

var counter atomic.Uint64

func freshName(base string) string {
	n := counter.Add(1)
	return fmt.Sprintf("macro expand %s %d", base, n)
}

// Expand repeatedly inlines every Action.MacroCall found (directly or
// nested inside If bodies) in every constructor of sp, until none remain.
// Unknown macro names are fatal.
func Expand(sp *spec.Spec) error {
	for i := range sp.Constructors {
		actions, err := expandUntilClosed(sp, sp.Constructors[i].Actions)
		if err != nil {
			return err
		}
		sp.Constructors[i].Actions = actions
	}
	return nil
}

func expandUntilClosed(sp *spec.Spec, actions []spec.Action) ([]spec.Action, error) {
	for containsMacroCall(actions) {
		next, err := expandOnePass(sp, actions)
		if err != nil {
			return nil, err
		}
		actions = next
	}
	return actions, nil
}

func containsMacroCall(actions []spec.Action) bool {
	for _, a := range actions {
		switch v := a.(type) {
		case spec.ActionMacroCall:
			return true
		case spec.ActionIf:
			if containsMacroCall(v.Body) {
				return true
			}
		}
	}
	return false
}

func expandOnePass(sp *spec.Spec, actions []spec.Action) ([]spec.Action, error) {
	var out []spec.Action
	for _, a := range actions {
		switch v := a.(type) {
		case spec.ActionMacroCall:
			m := findMacro(sp, v.Name)
			if m == nil {
				return nil, sleigherr.UndefinedMacroError{Name: v.Name}
			}
			expanded, err := expandCall(m, v.Args)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		case spec.ActionIf:
			body, err := expandOnePass(sp, v.Body)
			if err != nil {
				return nil, err
			}
			out = append(out, spec.ActionIf{Cond: v.Cond, Body: body})
		default:
			out = append(out, a)
		}
	}
	return out, nil
}

func findMacro(sp *spec.Spec, name string) *spec.Macro {
	for i := range sp.Macros {
		if sp.Macros[i].Name == name {
			return &sp.Macros[i]
		}
	}
	return nil
}

// expandCall builds the hygiene rename map for one invocation of m with
// actual arguments args, then emits the parameter bindings followed by the
// deep-renamed body.
func expandCall(m *spec.Macro, args []spec.RValue) ([]spec.Action, error) {
	if len(args) != len(m.Params) {
		return nil, sleigherr.InconsistentSpecError{
			Message: fmt.Sprintf("macro %q expects %d arguments, got %d", m.Name, len(m.Params), len(args)),
		}
	}

	rename := map[string]string{}
	for _, param := range m.Params {
		rename[param] = freshName(param)
	}
	collectLocalNames(m.Body, rename)

	var out []spec.Action
	for i, param := range m.Params {
		out = append(out, spec.ActionLocalDecl{
			Name:  spec.LValueIdent{Name: rename[param]},
			Value: args[i],
		})
	}
	for _, a := range m.Body {
		out = append(out, renameAction(a, rename))
	}
	return out, nil
}

// collectLocalNames walks body for Label and LocalDecl names not already
// in rename and adds a fresh mapping for each.
func collectLocalNames(body []spec.Action, rename map[string]string) {
	for _, a := range body {
		switch v := a.(type) {
		case spec.ActionLabel:
			if _, ok := rename[v.Name]; !ok {
				rename[v.Name] = freshName(v.Name)
			}
		case spec.ActionLocalDecl:
			if _, ok := rename[v.Name.Name]; !ok {
				rename[v.Name.Name] = freshName(v.Name.Name)
			}
		case spec.ActionIf:
			collectLocalNames(v.Body, rename)
		}
	}
}

func renameAction(a spec.Action, rename map[string]string) spec.Action {
	switch v := a.(type) {
	case spec.ActionLabel:
		return spec.ActionLabel{Name: renameOf(v.Name, rename)}
	case spec.ActionLocalDecl:
		return spec.ActionLocalDecl{
			Name:  spec.LValueIdent{Name: renameOf(v.Name.Name, rename), Size: v.Name.Size},
			Value: renameRValue(v.Value, rename),
		}
	case spec.ActionExport:
		return spec.ActionExport{Value: renameRValue(v.Value, rename)}
	case spec.ActionAssignment:
		return spec.ActionAssignment{Target: renameLValue(v.Target, rename), Value: renameRValue(v.Value, rename)}
	case spec.ActionBuild:
		return v
	case spec.ActionIf:
		body := make([]spec.Action, len(v.Body))
		for i, b := range v.Body {
			body[i] = renameAction(b, rename)
		}
		return spec.ActionIf{Cond: renameRValue(v.Cond, rename), Body: body}
	case spec.ActionGoto:
		if v.Label != nil {
			l := renameOf(*v.Label, rename)
			return spec.ActionGoto{Label: &l}
		}
		return spec.ActionGoto{Address: renameRValue(v.Address, rename)}
	case spec.ActionMacroCall:
		args := make([]spec.RValue, len(v.Args))
		for i, arg := range v.Args {
			args[i] = renameRValue(arg, rename)
		}
		return spec.ActionMacroCall{Name: v.Name, Args: args}
	case spec.ActionPCodeOp:
		args := make([]spec.RValue, len(v.Args))
		for i, arg := range v.Args {
			args[i] = renameRValue(arg, rename)
		}
		return spec.ActionPCodeOp{Name: v.Name, Args: args}
	case spec.ActionCall:
		return spec.ActionCall{Address: renameRValue(v.Address, rename)}
	case spec.ActionReturn:
		if v.Value == nil {
			return v
		}
		return spec.ActionReturn{Value: renameRValue(v.Value, rename)}
	}
	return a
}

func renameOf(name string, rename map[string]string) string {
	if r, ok := rename[name]; ok {
		return r
	}
	return name
}

func renameRValue(r spec.RValue, rename map[string]string) spec.RValue {
	if r == nil {
		return nil
	}
	switch v := r.(type) {
	case spec.RValueInteger:
		return v
	case spec.RValueIdent:
		return spec.RValueIdent{Name: renameOf(v.Name, rename)}
	case spec.RValueSized:
		return spec.RValueSized{Name: renameOf(v.Name, rename), Size: v.Size}
	case spec.RValueDeref:
		return spec.RValueDeref{Space: v.Space, Size: v.Size, Inner: renameRValue(v.Inner, rename)}
	case spec.RValueCall:
		args := make([]spec.RValue, len(v.Args))
		for i, a := range v.Args {
			args[i] = renameRValue(a, rename)
		}
		return spec.RValueCall{Name: v.Name, Args: args}
	case spec.RValueParen:
		return spec.RValueParen{Inner: renameRValue(v.Inner, rename)}
	case spec.RValueNot:
		return spec.RValueNot{Inner: renameRValue(v.Inner, rename)}
	case spec.RValueNeg:
		return spec.RValueNeg{Inner: renameRValue(v.Inner, rename)}
	case spec.RValueAdd:
		return spec.RValueAdd{NumType: v.NumType, Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueSub:
		return spec.RValueSub{NumType: v.NumType, Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueMult:
		return spec.RValueMult{NumType: v.NumType, Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueDiv:
		return spec.RValueDiv{NumType: v.NumType, Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueRem:
		return spec.RValueRem{NumType: v.NumType, Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueLShift:
		return spec.RValueLShift{Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueRShift:
		return spec.RValueRShift{NumType: v.NumType, Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueIntAnd:
		return spec.RValueIntAnd{Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueIntOr:
		return spec.RValueIntOr{Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueIntXor:
		return spec.RValueIntXor{Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueBoolAnd:
		return spec.RValueBoolAnd{Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueBoolOr:
		return spec.RValueBoolOr{Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueBoolXor:
		return spec.RValueBoolXor{Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	case spec.RValueComparison:
		return spec.RValueComparison{NumType: v.NumType, Op: v.Op, Left: renameRValue(v.Left, rename), Right: renameRValue(v.Right, rename)}
	}
	return r
}

func renameLValue(l spec.LValue, rename map[string]string) spec.LValue {
	switch v := l.(type) {
	case spec.LValueIdent:
		return spec.LValueIdent{Name: renameOf(v.Name, rename), Size: v.Size}
	case spec.LValueSlice:
		return spec.LValueSlice{Name: renameOf(v.Name, rename), Offset: v.Offset, Size: v.Size}
	case spec.LValueRef:
		return spec.LValueRef{Space: v.Space, Size: v.Size, Op: renameRValue(v.Op, rename)}
	}
	return l
}
