package ichain

import (
	"context"
	"fmt"
	"math"

	"github.com/PaesslerAG/gval"
)

// exprLang parses selection expressions: the full gval language plus
// the math functions cuts are usually written with, e.g.
// "pt > 25 && abs(eta) < 2.5".
var exprLang = gval.Full(
	gval.Function("abs", math.Abs),
	gval.Function("sqrt", math.Sqrt),
	gval.Function("min", math.Min),
	gval.Function("max", math.Max),
)

const maxSelNameLen = 128

// Selection is a named boolean cut over the variables of one event.
// The name doubles as the label of the cached entry list, so it is
// restricted to characters that are safe in a file name.
type Selection struct {
	name string
	expr string
	eval gval.Evaluable
}

// NewSelection parses expr and returns the selection. The name must be
// non-empty ASCII letters, digits, underscore or hyphen.
func NewSelection(name, expr string) (*Selection, error) {
	if !validSelName(name) {
		return nil, fmt.Errorf("%w: %q", ErrBadSelectionName, name)
	}

	eval, err := exprLang.NewEvaluable(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadExpr, expr, err)
	}

	return &Selection{name: name, expr: expr, eval: eval}, nil
}

// Name returns the selection's label.
func (s *Selection) Name() string { return s.name }

// Expr returns the expression the selection was built from.
func (s *Selection) Expr() string { return s.expr }

// Eval applies the selection to one event's variables.
func (s *Selection) Eval(vars map[string]any) (bool, error) {
	v, err := s.eval(context.Background(), vars)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", s.name, err)
	}

	pass, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q yielded %T", ErrExprNotBool, s.expr, v)
	}

	return pass, nil
}

// validSelName reports whether name can safely label a cache file.
func validSelName(name string) bool {
	if name == "" || len(name) > maxSelNameLen {
		return false
	}

	for i := 0; i < len(name); i++ {
		c := name[i]

		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}

	return true
}
