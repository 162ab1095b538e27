package frame

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
)

// op is one pending transformation of the underlying dataframe.
type op func(dataframe.DataFrame) (dataframe.DataFrame, error)

// Frame wraps a gota dataframe with deferred expression evaluation. A lazy
// frame queues its operations until Collect; an eager frame applies them on
// the spot. The first error sticks and short-circuits everything after it.
type Frame struct {
	df   dataframe.DataFrame
	ops  []op
	lazy bool
	err  error
}

// New wraps a gota dataframe in an eager Frame.
func New(df dataframe.DataFrame) *Frame {
	if df.Err != nil {
		return &Frame{err: df.Err}
	}
	return &Frame{df: df}
}

// NewErr builds a frame already carrying an error.
func NewErr(err error) *Frame {
	return &Frame{err: err}
}

// Err returns the frame's sticky error, if any.
func (f *Frame) Err() error { return f.err }

// IsLazy reports whether operations are being queued.
func (f *Frame) IsLazy() bool { return f.lazy }

// Lazy returns a frame that queues operations until Collect.
func (f *Frame) Lazy() *Frame {
	out := f.clone()
	out.lazy = true
	return out
}

// Collect applies every queued operation and returns an eager frame.
func (f *Frame) Collect() *Frame {
	if f.err != nil {
		return f
	}
	df := f.df
	var err error
	for _, o := range f.ops {
		df, err = o(df)
		if err != nil {
			return &Frame{err: err}
		}
	}
	return &Frame{df: df}
}

// DF materializes the frame and returns the underlying dataframe.
func (f *Frame) DF() (dataframe.DataFrame, error) {
	c := f.Collect()
	return c.df, c.err
}

// MustDF is DF for contexts where the error has already been checked.
func (f *Frame) MustDF() dataframe.DataFrame {
	df, err := f.DF()
	if err != nil {
		panic(err)
	}
	return df
}

func (f *Frame) clone() *Frame {
	ops := make([]op, len(f.ops))
	copy(ops, f.ops)
	return &Frame{df: f.df, ops: ops, lazy: f.lazy, err: f.err}
}

// apply queues or executes one operation depending on laziness.
func (f *Frame) apply(o op) *Frame {
	if f.err != nil {
		return f
	}
	if f.lazy {
		out := f.clone()
		out.ops = append(out.ops, o)
		return out
	}
	df, err := o(f.df)
	if err != nil {
		return &Frame{err: err}
	}
	return &Frame{df: df}
}

// Schema returns the column names, materializing any pending operations.
func (f *Frame) Schema() ([]string, error) {
	df, err := f.DF()
	if err != nil {
		return nil, err
	}
	return df.Names(), nil
}

// HasColumn reports whether the materialized frame has the named column.
func (f *Frame) HasColumn(name string) bool {
	names, err := f.Schema()
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Height returns the materialized row count.
func (f *Frame) Height() (int, error) {
	df, err := f.DF()
	if err != nil {
		return 0, err
	}
	return df.Nrow(), nil
}

// Column materializes and evaluates a single column by name.
func (f *Frame) Column(name string) (series.Series, error) {
	df, err := f.DF()
	if err != nil {
		return series.Series{}, err
	}
	s := df.Col(name)
	if s.Err != nil {
		return series.Series{}, fmt.Errorf("%w: %v", core.ErrSchema, s.Err)
	}
	return s, nil
}

// Floats materializes one column as floats with NaN nulls.
func (f *Frame) Floats(name string) ([]float64, error) {
	s, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	return s.Float(), nil
}

// WithColumn appends or replaces one column computed from an expression.
func (f *Frame) WithColumn(e Expr) *Frame {
	return f.WithColumns(e)
}

// WithColumns appends or replaces columns computed from expressions.
// Length-1 results broadcast to the frame height.
func (f *Frame) WithColumns(exprs ...Expr) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		ctx := &Ctx{DF: df}
		for _, e := range exprs {
			c, err := e.Eval(ctx)
			if err != nil {
				return df, err
			}
			if c.Len() == 1 && df.Nrow() > 1 {
				c = repeatCol(c, df.Nrow())
			}
			if c.Len() != df.Nrow() {
				return df, fmt.Errorf("%w: column %q has %d rows, frame has %d",
					core.ErrShape, e.Name(), c.Len(), df.Nrow())
			}
			df = df.Mutate(c.Series(e.Name()))
			if df.Err != nil {
				return df, df.Err
			}
			ctx.DF = df
		}
		return df, nil
	})
}

// Select evaluates expressions into a brand-new frame. Aggregations stay
// length 1 unless a longer column forces broadcasting.
func (f *Frame) Select(exprs ...Expr) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		ctx := &Ctx{DF: df}
		cols := make([]Col, len(exprs))
		height := 1
		for i, e := range exprs {
			c, err := e.Eval(ctx)
			if err != nil {
				return df, err
			}
			cols[i] = c
			if c.Len() > height {
				height = c.Len()
			}
		}
		ss := make([]series.Series, len(exprs))
		for i, c := range cols {
			if c.Len() == 1 && height > 1 {
				c = repeatCol(c, height)
			}
			if c.Len() != height {
				return df, fmt.Errorf("%w: column %q has %d rows, expected %d",
					core.ErrShape, exprs[i].Name(), c.Len(), height)
			}
			ss[i] = c.Series(exprs[i].Name())
		}
		out := dataframe.New(ss...)
		return out, out.Err
	})
}

// SelectNames keeps only the named columns, in order.
func (f *Frame) SelectNames(names ...string) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		out := df.Select(names)
		return out, out.Err
	})
}

// Drop removes the named columns; missing names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		for _, name := range names {
			found := false
			for _, n := range df.Names() {
				if n == name {
					found = true
					break
				}
			}
			if !found {
				continue
			}
			df = df.Drop(name)
			if df.Err != nil {
				return df, df.Err
			}
		}
		return df, nil
	})
}

// Rename maps old column names to new ones.
func (f *Frame) Rename(oldNew map[string]string) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		for old, nu := range oldNew {
			df = df.Rename(nu, old)
			if df.Err != nil {
				return df, df.Err
			}
		}
		return df, nil
	})
}

// Filter keeps the rows where the boolean expression is true; null slots
// drop the row.
func (f *Frame) Filter(mask Expr) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		c, err := mask.Eval(&Ctx{DF: df})
		if err != nil {
			return df, err
		}
		if c.Len() == 1 {
			c = repeatCol(c, df.Nrow())
		}
		if c.Len() != df.Nrow() {
			return df, fmt.Errorf("%w: mask has %d rows, frame has %d", core.ErrShape, c.Len(), df.Nrow())
		}
		keep := make([]int, 0, df.Nrow())
		for i, v := range c.Floats {
			if !math.IsNaN(v) && v != 0 {
				keep = append(keep, i)
			}
		}
		out := df.Subset(keep)
		return out, out.Err
	})
}

// Sort orders rows by the given columns ascending.
func (f *Frame) Sort(cols ...string) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		orders := make([]dataframe.Order, len(cols))
		for i, c := range cols {
			orders[i] = dataframe.Sort(c)
		}
		out := df.Arrange(orders...)
		return out, out.Err
	})
}

// SortDesc orders rows by the given columns descending.
func (f *Frame) SortDesc(cols ...string) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		orders := make([]dataframe.Order, len(cols))
		for i, c := range cols {
			orders[i] = dataframe.RevSort(c)
		}
		out := df.Arrange(orders...)
		return out, out.Err
	})
}

// Head keeps the first n rows.
func (f *Frame) Head(n int) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		if n > df.Nrow() {
			n = df.Nrow()
		}
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		out := df.Subset(idx)
		return out, out.Err
	})
}

// Tail keeps the last n rows.
func (f *Frame) Tail(n int) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		if n > df.Nrow() {
			n = df.Nrow()
		}
		idx := make([]int, n)
		for i := range idx {
			idx[i] = df.Nrow() - n + i
		}
		out := df.Subset(idx)
		return out, out.Err
	})
}

// HStack appends the other frame's columns side by side.
func (f *Frame) HStack(other *Frame) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		odf, err := other.DF()
		if err != nil {
			return df, err
		}
		for _, name := range odf.Names() {
			df = df.Mutate(odf.Col(name))
			if df.Err != nil {
				return df, df.Err
			}
		}
		return df, nil
	})
}

// VStack appends the other frame's rows below; schemas must match.
func (f *Frame) VStack(other *Frame) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		odf, err := other.DF()
		if err != nil {
			return df, err
		}
		out := df.RBind(odf)
		return out, out.Err
	})
}

// JoinHow selects the join flavor.
type JoinHow int

const (
	JoinInner JoinHow = iota
	JoinLeft
	JoinOuter
)

// Join joins two frames on key columns.
func (f *Frame) Join(other *Frame, keys []string, how JoinHow) *Frame {
	return f.apply(func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		odf, err := other.DF()
		if err != nil {
			return df, err
		}
		var out dataframe.DataFrame
		switch how {
		case JoinInner:
			out = df.InnerJoin(odf, keys...)
		case JoinLeft:
			out = df.LeftJoin(odf, keys...)
		case JoinOuter:
			out = df.OuterJoin(odf, keys...)
		default:
			return df, fmt.Errorf("%w: unknown join %d", core.ErrEngine, how)
		}
		return out, out.Err
	})
}

// Copy returns a deep copy of the materialized frame.
func (f *Frame) Copy() *Frame {
	df, err := f.DF()
	if err != nil {
		return NewErr(err)
	}
	return New(df.Copy())
}
