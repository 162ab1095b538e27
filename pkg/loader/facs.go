package loader

import (
	"fmt"

	"github.com/StudioSol/set"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/factor"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/samber/lo"
)

// WithFacs parses factor names and injects the resulting columns into every
// frame. Duplicate names collapse to one evaluation and names already in the
// schema are skipped. The backend steers which registry is tried first when
// a name resolves in both.
func (dl *DataLoader) WithFacs(names []string, backend core.Backend) (*DataLoader, error) {
	schema, err := dl.Schema()
	if err != nil {
		return nil, err
	}
	seen := set.NewLinkedHashSetString()
	for _, n := range names {
		if lo.Contains(schema, n) {
			continue
		}
		seen.Add(n)
	}

	var plFacs []factor.PlFactor
	var tFacs []factor.TFactor
	for name := range seen.Iter() {
		switch backend {
		case core.BackendTable:
			if t, err := factor.ParseTFactor(name); err == nil {
				tFacs = append(tFacs, t)
				continue
			}
			pl, err := factor.ParsePlFactor(name)
			if err != nil {
				return nil, err
			}
			plFacs = append(plFacs, pl)
		default:
			if pl, err := factor.ParsePlFactor(name); err == nil {
				plFacs = append(plFacs, pl)
				continue
			}
			t, err := factor.ParseTFactor(name)
			if err != nil {
				return nil, err
			}
			tFacs = append(tFacs, t)
		}
	}

	out := dl
	if len(plFacs) > 0 {
		if out, err = out.WithPlFacs(plFacs); err != nil {
			return nil, err
		}
	}
	if len(tFacs) > 0 {
		if out, err = out.WithTFacs(tFacs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WithPlFacs lowers the factors to expressions and adds them to every frame
// in parallel.
func (dl *DataLoader) WithPlFacs(facs []factor.PlFactor) (*DataLoader, error) {
	exprs := make([]frame.Expr, len(facs))
	for i, f := range facs {
		e, err := f.Expr()
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	out := dl.ParApply(func(f *frame.Frame) *frame.Frame {
		return f.WithColumns(exprs...)
	})
	if err := out.Dfs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WithPlFac adds a single expression factor to every frame.
func (dl *DataLoader) WithPlFac(fac factor.PlFactor) (*DataLoader, error) {
	return dl.WithPlFacs([]factor.PlFactor{fac})
}

// WithTFacs evaluates eager factors per frame and stacks the resulting
// series, in parallel across frames.
func (dl *DataLoader) WithTFacs(facs []factor.TFactor) (*DataLoader, error) {
	out := dl.ParApply(func(f *frame.Frame) *frame.Frame {
		df, err := f.DF()
		if err != nil {
			return frame.NewErr(err)
		}
		cur := frame.New(df)
		for _, t := range facs {
			s, err := t.Eval(cur)
			if err != nil {
				return frame.NewErr(err)
			}
			cur = cur.WithColumn(seriesExpr(s))
			if cur.Err() != nil {
				return cur
			}
		}
		return cur
	})
	if err := out.Dfs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WithTFac adds a single eager factor to every frame.
func (dl *DataLoader) WithTFac(fac factor.TFactor) (*DataLoader, error) {
	return dl.WithTFacs([]factor.TFactor{fac})
}

// seriesExpr lifts a pre-computed series into an expression so it can join
// the frame through the usual column path.
func seriesExpr(s series.Series) frame.Expr {
	return frame.NewExpr(s.Name, func(ctx *frame.Ctx) (frame.Col, error) {
		if s.Type() == series.String {
			return frame.Col{Strs: s.Records()}, nil
		}
		return frame.Col{Floats: s.Float()}, nil
	})
}

// WithPlAggFacs resamples the loader onto the rule's time buckets, reducing
// each factor with its paired aggregation; extraAgg expressions ride along
// in the same pass.
func (dl *DataLoader) WithPlAggFacs(rule string, facs []factor.PlAggFactor, extraAgg []frame.Expr, opt GroupByTimeOpt) (*DataLoader, error) {
	if len(facs) == 0 {
		return nil, fmt.Errorf("%w: no agg factors given", core.ErrShape)
	}
	// Materialize the row-level factor columns first so the aggregation can
	// reference them by name.
	prepared, err := dl.TryApply(func(f *frame.Frame) (*frame.Frame, error) {
		out := f
		for _, af := range facs {
			e, err := af.FacExpr()
			if err != nil {
				return nil, err
			}
			if out.HasColumn(af.FacName()) {
				continue
			}
			out = out.WithColumn(e.Alias(af.FacName()))
			if out.Err() != nil {
				return nil, out.Err()
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	aggs := make([]frame.Expr, 0, len(facs)+len(extraAgg))
	for _, af := range facs {
		aggs = append(aggs, af.AggExpr(frame.ColExpr(af.FacName())))
	}
	aggs = append(aggs, extraAgg...)

	return prepared.GroupByTime(rule, opt).Agg(aggs...)
}
