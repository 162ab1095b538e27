package factor

import "github.com/raykavin/factorlab/pkg/frame"

// binFactor combines two factors with an expression-level op. The name keeps
// the infix form, so "mid + ask_1" round-trips through the parser as a
// column name even though it is never registered.
type binFactor struct {
	left, right PlFactor
	infix       string
	combine     func(a, b frame.Expr) frame.Expr
}

func (f binFactor) Name() string {
	return f.left.Name() + f.infix + f.right.Name()
}

func (f binFactor) Expr() (frame.Expr, error) {
	a, err := f.left.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	b, err := f.right.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	return f.combine(a, b).Alias(f.Name()), nil
}

func binOp(l, r PlFactor, infix string, combine func(a, b frame.Expr) frame.Expr) PlFactor {
	return binFactor{left: l, right: r, infix: infix, combine: combine}
}

// Add is factor addition, named "a + b".
func Add(l, r PlFactor) PlFactor {
	return binOp(l, r, " + ", func(a, b frame.Expr) frame.Expr { return a.Add(b) })
}

// Sub is factor subtraction, named "a - b".
func Sub(l, r PlFactor) PlFactor {
	return binOp(l, r, " - ", func(a, b frame.Expr) frame.Expr { return a.Sub(b) })
}

// Mul is factor multiplication, named "a * b".
func Mul(l, r PlFactor) PlFactor {
	return binOp(l, r, " * ", func(a, b frame.Expr) frame.Expr { return a.Mul(b) })
}

// Div divides factors with zero-divisor protection, named "a / b".
func Div(l, r PlFactor) PlFactor {
	return binOp(l, r, " / ", func(a, b frame.Expr) frame.Expr { return a.ProtectDiv(b) })
}

// Pow raises a factor to another, named "a ^ b".
func Pow(l, r PlFactor) PlFactor {
	return binOp(l, r, " ^ ", func(a, b frame.Expr) frame.Expr { return a.Pow(b) })
}

// And is boolean conjunction of factor signals.
func And(l, r PlFactor) PlFactor {
	return binOp(l, r, " & ", func(a, b frame.Expr) frame.Expr { return a.And(b) })
}

// Or is boolean disjunction of factor signals.
func Or(l, r PlFactor) PlFactor {
	return binOp(l, r, " | ", func(a, b frame.Expr) frame.Expr { return a.Or(b) })
}

// Gt compares factors elementwise, named "a > b".
func Gt(l, r PlFactor) PlFactor {
	return binOp(l, r, " > ", func(a, b frame.Expr) frame.Expr { return a.Gt(b) })
}

// Ge compares factors elementwise, named "a >= b".
func Ge(l, r PlFactor) PlFactor {
	return binOp(l, r, " >= ", func(a, b frame.Expr) frame.Expr { return a.Ge(b) })
}

// Lt compares factors elementwise, named "a < b".
func Lt(l, r PlFactor) PlFactor {
	return binOp(l, r, " < ", func(a, b frame.Expr) frame.Expr { return a.Lt(b) })
}

// Le compares factors elementwise, named "a <= b".
func Le(l, r PlFactor) PlFactor {
	return binOp(l, r, " <= ", func(a, b frame.Expr) frame.Expr { return a.Le(b) })
}

// Eq compares factors elementwise, named "a == b".
func Eq(l, r PlFactor) PlFactor {
	return binOp(l, r, " == ", func(a, b frame.Expr) frame.Expr { return a.Eq(b) })
}

// Ne compares factors elementwise, named "a != b".
func Ne(l, r PlFactor) PlFactor {
	return binOp(l, r, " != ", func(a, b frame.Expr) frame.Expr { return a.Ne(b) })
}

// unaryFactor applies a prefix op to one factor.
type unaryFactor struct {
	inner  PlFactor
	prefix string
	apply  func(frame.Expr) frame.Expr
}

func (f unaryFactor) Name() string { return f.prefix + f.inner.Name() }

func (f unaryFactor) Expr() (frame.Expr, error) {
	e, err := f.inner.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	return f.apply(e).Alias(f.Name()), nil
}

// Neg negates a factor, named "-a".
func Neg(f PlFactor) PlFactor {
	return unaryFactor{inner: f, prefix: "-", apply: frame.Expr.Neg}
}

// Not flips a boolean factor, named "!a".
func Not(f PlFactor) PlFactor {
	return unaryFactor{inner: f, prefix: "!", apply: frame.Expr.Not}
}
