package loader

import (
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/samber/lo/parallel"
)

// Apply maps fn over every frame, keeping symbol order.
func (dl *DataLoader) Apply(fn func(*frame.Frame) *frame.Frame) *DataLoader {
	return dl.CopyWithDfs(dl.Dfs.Apply(fn))
}

// ParApply maps fn over every frame in parallel, keeping symbol order.
func (dl *DataLoader) ParApply(fn func(*frame.Frame) *frame.Frame) *DataLoader {
	return dl.CopyWithDfs(dl.Dfs.ParApply(fn))
}

// ParApplyWithSymbol is ParApply with the symbol handed to fn.
func (dl *DataLoader) ParApplyWithSymbol(fn func(symbol string, f *frame.Frame) *frame.Frame) *DataLoader {
	dfs := parallel.Map(dl.Dfs, func(f *frame.Frame, i int) *frame.Frame {
		return fn(dl.Symbols[i], f)
	})
	return dl.CopyWithDfs(dfs)
}

// TryApply maps a fallible fn over every frame, stopping at the first error.
func (dl *DataLoader) TryApply(fn func(*frame.Frame) (*frame.Frame, error)) (*DataLoader, error) {
	dfs, err := dl.Dfs.TryApply(fn)
	if err != nil {
		return nil, err
	}
	return dl.CopyWithDfs(dfs), nil
}

// WithColumns adds expression columns to every frame.
func (dl *DataLoader) WithColumns(exprs ...frame.Expr) *DataLoader {
	return dl.Apply(func(f *frame.Frame) *frame.Frame {
		return f.WithColumns(exprs...)
	})
}

// Select projects every frame onto the given expressions.
func (dl *DataLoader) Select(exprs ...frame.Expr) *DataLoader {
	return dl.Apply(func(f *frame.Frame) *frame.Frame {
		return f.Select(exprs...)
	})
}

// SelectNames keeps only the named columns in every frame.
func (dl *DataLoader) SelectNames(names ...string) *DataLoader {
	return dl.Apply(func(f *frame.Frame) *frame.Frame {
		return f.SelectNames(names...)
	})
}

// Filter keeps rows matching the mask in every frame.
func (dl *DataLoader) Filter(mask frame.Expr) *DataLoader {
	return dl.Apply(func(f *frame.Frame) *frame.Frame {
		return f.Filter(mask)
	})
}

// Sort orders every frame by the given columns.
func (dl *DataLoader) Sort(cols ...string) *DataLoader {
	return dl.Apply(func(f *frame.Frame) *frame.Frame {
		return f.Sort(cols...)
	})
}

// Rename renames columns in every frame.
func (dl *DataLoader) Rename(oldNew map[string]string) *DataLoader {
	return dl.Apply(func(f *frame.Frame) *frame.Frame {
		return f.Rename(oldNew)
	})
}

// Drop removes columns from every frame; missing names are ignored.
func (dl *DataLoader) Drop(names ...string) *DataLoader {
	return dl.Apply(func(f *frame.Frame) *frame.Frame {
		return f.Drop(names...)
	})
}
