package frame

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
)

// Col is the evaluated form of an expression: a float column where NaN marks
// nulls, or a string column. Boolean columns are floats restricted to
// 0, 1 and NaN.
type Col struct {
	Floats []float64
	Strs   []string
	IsBool bool
}

// Len returns the column length.
func (c Col) Len() int {
	if c.Strs != nil {
		return len(c.Strs)
	}
	return len(c.Floats)
}

// IsStr reports whether the column holds strings.
func (c Col) IsStr() bool { return c.Strs != nil }

// Series converts the column into a gota series with the given name.
func (c Col) Series(name string) series.Series {
	if c.Strs != nil {
		return series.New(c.Strs, series.String, name)
	}
	return series.New(c.Floats, series.Float, name)
}

// colFromSeries reads a gota series into a Col. String columns stay strings;
// everything else becomes floats with NaN nulls.
func colFromSeries(s series.Series) Col {
	if s.Type() == series.String {
		return Col{Strs: s.Records()}
	}
	out := Col{Floats: s.Float()}
	if s.Type() == series.Bool {
		out.IsBool = true
	}
	return out
}

// Ctx carries the frame an expression is evaluated against.
type Ctx struct {
	DF dataframe.DataFrame
}

// Expr is a deferred column computation with a display name. Expressions are
// immutable; every method returns a new expression.
type Expr struct {
	name string
	fn   func(*Ctx) (Col, error)
}

// NewExpr builds an expression from a name and an evaluation closure.
func NewExpr(name string, fn func(*Ctx) (Col, error)) Expr {
	return Expr{name: name, fn: fn}
}

// Name returns the expression's output column name.
func (e Expr) Name() string { return e.name }

// Alias renames the expression's output column.
func (e Expr) Alias(name string) Expr {
	return Expr{name: name, fn: e.fn}
}

// Eval evaluates the expression against the frame context.
func (e Expr) Eval(ctx *Ctx) (Col, error) {
	if e.fn == nil {
		return Col{}, fmt.Errorf("%w: empty expression", core.ErrEngine)
	}
	return e.fn(ctx)
}

// Col references a frame column by name.
func ColExpr(name string) Expr {
	return NewExpr(name, func(ctx *Ctx) (Col, error) {
		for _, n := range ctx.DF.Names() {
			if n == name {
				return colFromSeries(ctx.DF.Col(name)), nil
			}
		}
		return Col{}, fmt.Errorf("%w: column %q not found", core.ErrSchema, name)
	})
}

// Lit is a length-1 float literal, broadcast on use.
func Lit(v float64) Expr {
	return NewExpr(fmt.Sprintf("%g", v), func(*Ctx) (Col, error) {
		return Col{Floats: []float64{v}}, nil
	})
}

// LitInt is Lit for integer constants.
func LitInt(v int) Expr { return Lit(float64(v)) }

// LitBool is a length-1 boolean literal.
func LitBool(v bool) Expr {
	name := "false"
	f := 0.0
	if v {
		name, f = "true", 1.0
	}
	return NewExpr(name, func(*Ctx) (Col, error) {
		return Col{Floats: []float64{f}, IsBool: true}, nil
	})
}

// LitStr is a length-1 string literal.
func LitStr(v string) Expr {
	return NewExpr(v, func(*Ctx) (Col, error) {
		return Col{Strs: []string{v}}, nil
	})
}

// NullLit is a length-1 null literal.
func NullLit() Expr {
	return NewExpr("null", func(*Ctx) (Col, error) {
		return Col{Floats: []float64{math.NaN()}}, nil
	})
}

// broadcast2 aligns two columns for elementwise work: a length-1 column is
// repeated to match the other side.
func broadcast2(a, b Col) (Col, Col, error) {
	la, lb := a.Len(), b.Len()
	if la == lb {
		return a, b, nil
	}
	if la == 1 {
		return repeatCol(a, lb), b, nil
	}
	if lb == 1 {
		return a, repeatCol(b, la), nil
	}
	return a, b, fmt.Errorf("%w: length mismatch %d vs %d", core.ErrShape, la, lb)
}

func repeatCol(c Col, n int) Col {
	if c.Strs != nil {
		out := make([]string, n)
		for i := range out {
			out[i] = c.Strs[0]
		}
		return Col{Strs: out}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = c.Floats[0]
	}
	return Col{Floats: out, IsBool: c.IsBool}
}

// binFloat builds an elementwise float binary op; NaN on either side yields
// NaN unless the op decides otherwise.
func (e Expr) binFloat(name string, other Expr, bool2 bool, op func(a, b float64) float64) Expr {
	return NewExpr(name, func(ctx *Ctx) (Col, error) {
		ca, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		cb, err := other.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		if ca.IsStr() || cb.IsStr() {
			return Col{}, fmt.Errorf("%w: %s on string column", core.ErrEngine, name)
		}
		ca, cb, err = broadcast2(ca, cb)
		if err != nil {
			return Col{}, err
		}
		out := make([]float64, len(ca.Floats))
		for i := range out {
			out[i] = op(ca.Floats[i], cb.Floats[i])
		}
		return Col{Floats: out, IsBool: bool2}, nil
	})
}

func nanGuard(op func(a, b float64) float64) func(a, b float64) float64 {
	return func(a, b float64) float64 {
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.NaN()
		}
		return op(a, b)
	}
}

// Add is elementwise addition; nulls propagate.
func (e Expr) Add(o Expr) Expr {
	return e.binFloat(e.name+" + "+o.name, o, false, nanGuard(func(a, b float64) float64 { return a + b }))
}

// Sub is elementwise subtraction.
func (e Expr) Sub(o Expr) Expr {
	return e.binFloat(e.name+" - "+o.name, o, false, nanGuard(func(a, b float64) float64 { return a - b }))
}

// Mul is elementwise multiplication.
func (e Expr) Mul(o Expr) Expr {
	return e.binFloat(e.name+" * "+o.name, o, false, nanGuard(func(a, b float64) float64 { return a * b }))
}

// Div is plain elementwise division; dividing by zero follows IEEE rules.
// Use ProtectDiv where a zero divisor must yield null.
func (e Expr) Div(o Expr) Expr {
	return e.binFloat(e.name+" / "+o.name, o, false, nanGuard(func(a, b float64) float64 { return a / b }))
}

// Pow raises the column to the other column's power.
func (e Expr) Pow(o Expr) Expr {
	return e.binFloat(e.name+" ^ "+o.name, o, false, nanGuard(math.Pow))
}

// Neg negates the column.
func (e Expr) Neg() Expr {
	return e.mapFloat("-"+e.name, false, func(v float64) float64 { return -v })
}

// comparison ops; null on either side compares to null.

func cmpOp(op func(a, b float64) bool) func(a, b float64) float64 {
	return nanGuard(func(a, b float64) float64 {
		if op(a, b) {
			return 1
		}
		return 0
	})
}

// Gt is elementwise a > b.
func (e Expr) Gt(o Expr) Expr {
	return e.binFloat(e.name+" > "+o.name, o, true, cmpOp(func(a, b float64) bool { return a > b }))
}

// Ge is elementwise a >= b.
func (e Expr) Ge(o Expr) Expr {
	return e.binFloat(e.name+" >= "+o.name, o, true, cmpOp(func(a, b float64) bool { return a >= b }))
}

// Lt is elementwise a < b.
func (e Expr) Lt(o Expr) Expr {
	return e.binFloat(e.name+" < "+o.name, o, true, cmpOp(func(a, b float64) bool { return a < b }))
}

// Le is elementwise a <= b.
func (e Expr) Le(o Expr) Expr {
	return e.binFloat(e.name+" <= "+o.name, o, true, cmpOp(func(a, b float64) bool { return a <= b }))
}

// Eq is elementwise equality. String columns compare as strings.
func (e Expr) Eq(o Expr) Expr {
	return e.cmpMaybeStr(e.name+" == "+o.name, o, func(eq bool) float64 {
		if eq {
			return 1
		}
		return 0
	})
}

// Ne is elementwise inequality.
func (e Expr) Ne(o Expr) Expr {
	return e.cmpMaybeStr(e.name+" != "+o.name, o, func(eq bool) float64 {
		if eq {
			return 0
		}
		return 1
	})
}

func (e Expr) cmpMaybeStr(name string, other Expr, toF func(eq bool) float64) Expr {
	return NewExpr(name, func(ctx *Ctx) (Col, error) {
		ca, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		cb, err := other.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		ca, cb, err = broadcast2(ca, cb)
		if err != nil {
			return Col{}, err
		}
		n := ca.Len()
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			switch {
			case ca.IsStr() && cb.IsStr():
				out[i] = toF(ca.Strs[i] == cb.Strs[i])
			case !ca.IsStr() && !cb.IsStr():
				a, b := ca.Floats[i], cb.Floats[i]
				if math.IsNaN(a) || math.IsNaN(b) {
					out[i] = math.NaN()
				} else {
					out[i] = toF(a == b)
				}
			default:
				return Col{}, fmt.Errorf("%w: comparing string to numeric", core.ErrEngine)
			}
		}
		return Col{Floats: out, IsBool: true}, nil
	})
}

// And is boolean conjunction with null propagation.
func (e Expr) And(o Expr) Expr {
	return e.binFloat(e.name+" & "+o.name, o, true, nanGuard(func(a, b float64) float64 {
		if a != 0 && b != 0 {
			return 1
		}
		return 0
	}))
}

// Or is boolean disjunction with null propagation.
func (e Expr) Or(o Expr) Expr {
	return e.binFloat(e.name+" | "+o.name, o, true, nanGuard(func(a, b float64) float64 {
		if a != 0 || b != 0 {
			return 1
		}
		return 0
	}))
}

// Not flips a boolean column; nulls stay null.
func (e Expr) Not() Expr {
	return NewExpr("!"+e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		out := make([]float64, len(c.Floats))
		for i, v := range c.Floats {
			switch {
			case math.IsNaN(v):
				out[i] = math.NaN()
			case v == 0:
				out[i] = 1
			default:
				out[i] = 0
			}
		}
		return Col{Floats: out, IsBool: true}, nil
	})
}

// mapFloat builds an elementwise unary op skipping nulls.
func (e Expr) mapFloat(name string, isBool bool, op func(v float64) float64) Expr {
	return NewExpr(name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		if c.IsStr() {
			return Col{}, fmt.Errorf("%w: %s on string column", core.ErrEngine, name)
		}
		out := make([]float64, len(c.Floats))
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				out[i] = math.NaN()
				continue
			}
			out[i] = op(v)
		}
		return Col{Floats: out, IsBool: isBool}, nil
	})
}

// Abs is the elementwise absolute value.
func (e Expr) Abs() Expr {
	return e.mapFloat(e.name+".abs()", false, math.Abs)
}

// Log is the elementwise natural log; non-positive values go null.
func (e Expr) Log() Expr {
	return e.mapFloat(e.name+".log()", false, func(v float64) float64 {
		if v <= 0 {
			return math.NaN()
		}
		return math.Log(v)
	})
}

// Clip limits values to [lo, hi]; nulls pass through.
func (e Expr) Clip(lo, hi float64) Expr {
	return e.mapFloat(e.name, false, func(v float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	})
}

// IsNull marks null slots true.
func (e Expr) IsNull() Expr {
	return NewExpr(e.name+".is_null()", func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		out := make([]float64, c.Len())
		for i := range out {
			null := false
			if c.IsStr() {
				null = c.Strs[i] == ""
			} else {
				null = math.IsNaN(c.Floats[i])
			}
			if null {
				out[i] = 1
			}
		}
		return Col{Floats: out, IsBool: true}, nil
	})
}

// IsNotNull marks non-null slots true.
func (e Expr) IsNotNull() Expr {
	return e.IsNull().Not().Alias(e.name + ".is_not_null()")
}

// FillNull replaces nulls with the other expression's values.
func (e Expr) FillNull(o Expr) Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		ca, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		cb, err := o.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		ca, cb, err = broadcast2(ca, cb)
		if err != nil {
			return Col{}, err
		}
		out := make([]float64, len(ca.Floats))
		for i, v := range ca.Floats {
			if math.IsNaN(v) {
				out[i] = cb.Floats[i]
			} else {
				out[i] = v
			}
		}
		return Col{Floats: out, IsBool: ca.IsBool && cb.IsBool}, nil
	})
}

// FillNan is FillNull on float columns; kept as a separate entry point since
// NaN and null coincide in this engine.
func (e Expr) FillNan(o Expr) Expr { return e.FillNull(o) }

// ForwardFill carries the last non-null value forward.
func (e Expr) ForwardFill() Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		out := make([]float64, len(c.Floats))
		last := math.NaN()
		for i, v := range c.Floats {
			if !math.IsNaN(v) {
				last = v
			}
			out[i] = last
		}
		return Col{Floats: out, IsBool: c.IsBool}, nil
	})
}

// Shift moves values down by n slots (up for negative n), filling with null.
func (e Expr) Shift(n int) Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		if c.IsStr() {
			out := make([]string, len(c.Strs))
			for i := range out {
				j := i - n
				if j >= 0 && j < len(c.Strs) {
					out[i] = c.Strs[j]
				}
			}
			return Col{Strs: out}, nil
		}
		out := make([]float64, len(c.Floats))
		for i := range out {
			j := i - n
			if j >= 0 && j < len(c.Floats) {
				out[i] = c.Floats[j]
			} else {
				out[i] = math.NaN()
			}
		}
		return Col{Floats: out, IsBool: c.IsBool}, nil
	})
}

// Diff is x - x.shift(n).
func (e Expr) Diff(n int) Expr {
	return e.Sub(e.Shift(n)).Alias(e.name)
}

// PctChange is x / x.shift(n) - 1.
func (e Expr) PctChange(n int) Expr {
	return e.Div(e.Shift(n)).Sub(Lit(1)).Alias(e.name)
}

// CumSum is the running sum; nulls stay null and do not advance the sum.
func (e Expr) CumSum() Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		out := make([]float64, len(c.Floats))
		sum := 0.0
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				out[i] = math.NaN()
				continue
			}
			sum += v
			out[i] = sum
		}
		return Col{Floats: out}, nil
	})
}

// WhenExpr is the conditional builder started by When.
type WhenExpr struct {
	cond Expr
	then Expr
}

// When starts a conditional expression over a boolean column.
func When(cond Expr) WhenExpr {
	return WhenExpr{cond: cond}
}

// Then sets the value taken where the condition holds.
func (w WhenExpr) Then(v Expr) WhenExpr {
	w.then = v
	return w
}

// Otherwise completes the conditional: cond ? then : other, null condition
// slots yield null.
func (w WhenExpr) Otherwise(other Expr) Expr {
	cond, then := w.cond, w.then
	name := then.name
	return NewExpr(name, func(ctx *Ctx) (Col, error) {
		cc, err := cond.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		ct, err := then.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		co, err := other.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		cc, ct, err = broadcast2(cc, ct)
		if err != nil {
			return Col{}, err
		}
		cc, co, err = broadcast2(cc, co)
		if err != nil {
			return Col{}, err
		}
		ct, co, err = broadcast2(ct, co)
		if err != nil {
			return Col{}, err
		}
		if ct.IsStr() || co.IsStr() {
			if !ct.IsStr() || !co.IsStr() {
				return Col{}, fmt.Errorf("%w: mixed branch types in when/then", core.ErrEngine)
			}
			out := make([]string, cc.Len())
			for i, c := range cc.Floats {
				switch {
				case math.IsNaN(c):
					out[i] = ""
				case c != 0:
					out[i] = ct.Strs[i]
				default:
					out[i] = co.Strs[i]
				}
			}
			return Col{Strs: out}, nil
		}
		out := make([]float64, cc.Len())
		for i, c := range cc.Floats {
			switch {
			case math.IsNaN(c):
				out[i] = math.NaN()
			case c != 0:
				out[i] = ct.Floats[i]
			default:
				out[i] = co.Floats[i]
			}
		}
		return Col{Floats: out, IsBool: ct.IsBool && co.IsBool}, nil
	})
}
