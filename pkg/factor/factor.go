// Package factor implements a composable factor algebra: named column
// computations that can be combined with arithmetic, transformed with
// rolling methods, registered under their textual names, and parsed back
// from those names.
package factor

import (
	"fmt"

	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
)

// Factor is anything with a canonical textual name. The name doubles as the
// output column name and as the parse representation.
type Factor interface {
	Name() string
}

// PlFactor is a factor evaluated through the expression engine.
type PlFactor interface {
	Factor
	Expr() (frame.Expr, error)
}

// TFactor is a factor evaluated eagerly against a materialized frame,
// typically because it wraps an indicator routine that wants raw slices.
type TFactor interface {
	Factor
	Eval(f *frame.Frame) (series.Series, error)
}

// FormatName renders "<base>" for a None param and "<base>_<param>"
// otherwise.
func FormatName(base string, p param.Param) string {
	if p.IsNone() {
		return base
	}
	return base + "_" + p.String()
}

// exprFactor wraps a fixed expression under a name.
type exprFactor struct {
	name string
	e    frame.Expr
}

func (f exprFactor) Name() string { return f.name }

func (f exprFactor) Expr() (frame.Expr, error) {
	return f.e.Alias(f.name), nil
}

// FromExpr lifts an expression into a named factor.
func FromExpr(name string, e frame.Expr) PlFactor {
	return exprFactor{name: name, e: e}
}

// Lit is a constant factor; its name is the number's text.
func Lit(v float64) PlFactor {
	return exprFactor{name: fmt.Sprintf("%g", v), e: frame.Lit(v)}
}

// colFactor reads a single frame column. Base market-data factors are
// colFactors under their column name.
type colFactor struct {
	name string
	col  string
}

func (f colFactor) Name() string { return f.name }

func (f colFactor) Expr() (frame.Expr, error) {
	return frame.ColExpr(f.col).Alias(f.name), nil
}

func (f colFactor) Eval(fr *frame.Frame) (series.Series, error) {
	return fr.Column(f.col)
}

// FromColumn names a factor that reads one column directly.
func FromColumn(name, col string) PlFactor {
	return colFactor{name: name, col: col}
}
