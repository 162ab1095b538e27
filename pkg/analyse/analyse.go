package analyse

import (
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/loader"
	"github.com/samber/lo/parallel"
)

// FacAnalysis evaluates a set of factor columns against forward-return label
// columns across every symbol in a loader. Each With* step appends one result
// group to the summary; factors are processed in parallel within a step.
type FacAnalysis struct {
	dl      *loader.DataLoader
	facs    []string
	labels  []string
	periods []int
	Summary *Summary
}

// New prepares an analysis run. Label horizons are inferred from the _<n>
// suffix of each label name. With dropPeak the factor columns are
// quantile-winsorized at 1% before any statistic is computed.
func New(dl *loader.DataLoader, facs, labels []string, dropPeak bool) (*FacAnalysis, error) {
	periods, err := inferLabelPeriods(labels)
	if err != nil {
		return nil, err
	}
	if dropPeak {
		exprs := make([]frame.Expr, len(facs))
		for i, fac := range facs {
			exprs[i] = frame.ColExpr(fac).Winsorize(frame.WinsorizeQuantile, 0.01).Alias(fac)
		}
		if dl, err = dl.WithColumns(exprs...).Collect(true); err != nil {
			return nil, err
		}
	}
	return &FacAnalysis{
		dl:      dl,
		facs:    facs,
		labels:  labels,
		periods: periods,
		Summary: NewSummary(facs, labels),
	}, nil
}

// timeKey returns the column a time rule buckets on.
func (fa *FacAnalysis) timeKey(rule string) string {
	if rule == "daily" {
		return fa.dl.DailyCol()
	}
	return "time"
}

type facResult[T any] struct {
	val T
	err error
}

func firstErr[T any](results []facResult[T]) error {
	for _, r := range results {
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

// WithICOverall correlates each factor against every label per symbol, then
// weight-averages the per-symbol ICs by observation count.
func (fa *FacAnalysis) WithICOverall(method core.CorrMethod) (*FacAnalysis, error) {
	type icPair struct {
		symIC   *loader.DataLoader
		overall *frame.Frame
	}
	results := parallel.Map(fa.facs, func(fac string, _ int) facResult[icPair] {
		exprs := make([]frame.Expr, 0, len(fa.labels)+1)
		for _, label := range fa.labels {
			exprs = append(exprs, stableCorr(frame.ColExpr(fac), frame.ColExpr(label), method).Alias(label))
		}
		exprs = append(exprs, frame.ColExpr(fac).LenAgg().Alias("count"))
		ic, err := fa.dl.Select(exprs...).Collect(true)
		if err != nil {
			return facResult[icPair]{err: err}
		}
		aggs := make([]frame.HAgg, len(fa.labels))
		for i, label := range fa.labels {
			aggs[i] = frame.HAgg{Col: label, Method: frame.HAggWeightMean, WeightCol: "count"}
		}
		overall, err := ic.Dfs.HorizontalAgg(nil, aggs)
		if err != nil {
			return facResult[icPair]{err: err}
		}
		return facResult[icPair]{val: icPair{symIC: ic.Drop("count"), overall: overall}}
	})
	if err := firstErr(results); err != nil {
		return nil, err
	}

	symICs := make([]*loader.DataLoader, len(results))
	overalls := make([]*frame.Frame, len(results))
	for i, r := range results {
		symICs[i] = r.val.symIC
		overalls[i] = r.val.overall
	}
	fa.Summary.WithSymbolIC(symICs).WithICOverall(overalls)
	return fa, nil
}

// WithTsIC computes a per-bucket IC time series for each factor: symbols are
// resampled by the rule, correlated per bucket, aligned on the bucket key and
// averaged across symbols.
func (fa *FacAnalysis) WithTsIC(rule string, method core.CorrMethod) (*FacAnalysis, error) {
	key := fa.timeKey(rule)
	results := parallel.Map(fa.facs, func(fac string, _ int) facResult[*frame.Frame] {
		exprs := make([]frame.Expr, len(fa.labels))
		for i, label := range fa.labels {
			exprs[i] = stableCorr(frame.ColExpr(label), frame.ColExpr(fac), method).Alias(label)
		}
		out, err := fa.dl.GroupByTime(rule, loader.GroupByTimeOpt{}).Agg(exprs...)
		if err != nil {
			return facResult[*frame.Frame]{err: err}
		}
		if out, err = out.Align(key); err != nil {
			return facResult[*frame.Frame]{err: err}
		}
		aggs := make([]frame.HAgg, len(fa.labels))
		for i, label := range fa.labels {
			aggs[i] = frame.HAgg{Col: label, Method: frame.HAggMean}
		}
		tsIC, err := out.Dfs.HorizontalAgg([]string{key}, aggs)
		if err != nil {
			return facResult[*frame.Frame]{err: err}
		}
		return facResult[*frame.Frame]{val: tsIC}
	})
	if err := firstErr(results); err != nil {
		return nil, err
	}

	tsICs := make([]*frame.Frame, len(results))
	for i, r := range results {
		tsICs[i] = r.val
	}
	fa.Summary.WithTsIC(tsICs)
	return fa, nil
}

// WithTsGroupRet buckets each factor into equal-count rank groups, sums the
// horizon-scaled labels per day per group, and averages across symbols.
func (fa *FacAnalysis) WithTsGroupRet(groups int) (*FacAnalysis, error) {
	daily := fa.dl.DailyCol()
	type groupPair struct {
		sym *loader.DataLoader
		ret *frame.Frame
	}
	results := parallel.Map(fa.facs, func(fac string, _ int) facResult[groupPair] {
		aggs := make([]frame.Expr, len(fa.labels))
		for i, label := range fa.labels {
			aggs[i] = frame.ColExpr(label).Div(frame.Lit(float64(fa.periods[i]))).Sum().Alias(label)
		}
		grouped := fa.dl.WithColumns(tsGroup(frame.ColExpr(fac), groups).Alias("group"))
		out, err := grouped.TryApply(func(f *frame.Frame) (*frame.Frame, error) {
			res := f.GroupBy([]string{daily, "group"}, false).Agg(aggs...)
			return res, res.Err()
		})
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		out, err = out.Filter(frame.ColExpr("group").IsNotNull()).
			Sort("group", daily).
			Collect(true)
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		aligned, err := out.Align("group", daily)
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		hAggs := make([]frame.HAgg, len(fa.labels))
		for i, label := range fa.labels {
			hAggs[i] = frame.HAgg{Col: label, Method: frame.HAggMean}
		}
		ret, err := aligned.Dfs.HorizontalAgg([]string{"group", daily}, hAggs)
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		return facResult[groupPair]{val: groupPair{sym: out, ret: ret}}
	})
	if err := firstErr(results); err != nil {
		return nil, err
	}

	syms := make([]*loader.DataLoader, len(results))
	rets := make([]*frame.Frame, len(results))
	for i, r := range results {
		syms[i] = r.val.sym
		rets[i] = r.val.ret
	}
	fa.Summary.WithSymbolTsGroupRets(syms).WithTsGroupRets(rets)
	return fa, nil
}

// WithGroupRet computes per-group label means. With a rule the grouping is
// re-aggregated over time buckets and meaned; without one the whole history
// is grouped once and symbols are weight-averaged by observation count.
func (fa *FacAnalysis) WithGroupRet(rule string, groups int) (*FacAnalysis, error) {
	if rule != "" {
		return fa.groupRetByRule(rule, groups)
	}
	return fa.groupRetOverall(groups)
}

func (fa *FacAnalysis) groupStatExprs(fac string) []frame.Expr {
	exprs := []frame.Expr{
		frame.ColExpr(fac).Min().Alias("min"),
		frame.ColExpr(fac).Max().Alias("max"),
		frame.ColExpr(fac).Count().Alias("count"),
	}
	for _, label := range fa.labels {
		exprs = append(exprs, frame.ColExpr(label).Mean().Alias(label))
	}
	return exprs
}

func (fa *FacAnalysis) groupRetOverall(groups int) (*FacAnalysis, error) {
	type groupPair struct {
		sym *loader.DataLoader
		ret *frame.Frame
	}
	results := parallel.Map(fa.facs, func(fac string, _ int) facResult[groupPair] {
		aggs := fa.groupStatExprs(fac)
		grouped := fa.dl.WithColumns(tsGroup(frame.ColExpr(fac), groups).Alias("group"))
		out, err := grouped.TryApply(func(f *frame.Frame) (*frame.Frame, error) {
			res := f.GroupBy([]string{"group"}, false).Agg(aggs...)
			return res, res.Err()
		})
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		out, err = out.Filter(frame.ColExpr("group").IsNotNull()).Sort("group").Collect(true)
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		aligned, err := out.Align("group")
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		hAggs := make([]frame.HAgg, len(fa.labels))
		for i, label := range fa.labels {
			hAggs[i] = frame.HAgg{Col: label, Method: frame.HAggWeightMean, WeightCol: "count"}
		}
		ret, err := aligned.Dfs.HorizontalAgg([]string{"group"}, hAggs)
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		return facResult[groupPair]{val: groupPair{sym: out, ret: ret}}
	})
	if err := firstErr(results); err != nil {
		return nil, err
	}

	syms := make([]*loader.DataLoader, len(results))
	rets := make([]*frame.Frame, len(results))
	for i, r := range results {
		syms[i] = r.val.sym
		rets[i] = r.val.ret
	}
	fa.Summary.WithSymbolGroupRets(syms).WithGroupRets(rets)
	return fa, nil
}

func (fa *FacAnalysis) groupRetByRule(rule string, groups int) (*FacAnalysis, error) {
	daily := fa.dl.DailyCol()
	key := fa.timeKey(rule)
	type groupPair struct {
		sym *loader.DataLoader
		ret *frame.Frame
	}
	results := parallel.Map(fa.facs, func(fac string, _ int) facResult[groupPair] {
		aggs := fa.groupStatExprs(fac)
		grouped := fa.dl.
			WithColumns(tsGroup(frame.ColExpr(fac), groups).Alias("group")).
			Sort("group", daily)
		out, err := grouped.GroupByTime(rule, loader.GroupByTimeOpt{By: []string{"group"}}).Agg(aggs...)
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		out, err = out.Filter(frame.ColExpr("group").IsNotNull()).Collect(true)
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		aligned, err := out.Align("group", key)
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		// collapse the time buckets per group before crossing symbols
		meanExprs := []frame.Expr{
			frame.ColExpr("min").Mean().Alias("min"),
			frame.ColExpr("max").Mean().Alias("max"),
			frame.ColExpr("count").Mean().Alias("count"),
		}
		for _, label := range fa.labels {
			meanExprs = append(meanExprs, frame.ColExpr(label).Mean().Alias(label))
		}
		collapsed, err := aligned.TryApply(func(f *frame.Frame) (*frame.Frame, error) {
			res := f.GroupBy([]string{"group"}, true).Agg(meanExprs...)
			return res, res.Err()
		})
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		hAggs := make([]frame.HAgg, len(fa.labels))
		for i, label := range fa.labels {
			hAggs[i] = frame.HAgg{Col: label, Method: frame.HAggMean}
		}
		ret, err := collapsed.Dfs.HorizontalAgg([]string{"group"}, hAggs)
		if err != nil {
			return facResult[groupPair]{err: err}
		}
		return facResult[groupPair]{val: groupPair{sym: out, ret: ret}}
	})
	if err := firstErr(results); err != nil {
		return nil, err
	}

	syms := make([]*loader.DataLoader, len(results))
	rets := make([]*frame.Frame, len(results))
	for i, r := range results {
		syms[i] = r.val.sym
		rets[i] = r.val.ret
	}
	fa.Summary.WithSymbolGroupRets(syms).WithGroupRets(rets)
	return fa, nil
}

// WithHalfLife computes each factor's autocorrelation half-life per symbol
// and averages across symbols.
func (fa *FacAnalysis) WithHalfLife() (*FacAnalysis, error) {
	exprs := make([]frame.Expr, len(fa.facs))
	for i, fac := range fa.facs {
		exprs[i] = frame.ColExpr(fac).HalfLife(0).Alias(fac)
	}
	sym, err := fa.dl.Select(exprs...).Collect(true)
	if err != nil {
		return nil, err
	}
	aggs := make([]frame.HAgg, len(fa.facs))
	for i, fac := range fa.facs {
		aggs[i] = frame.HAgg{Col: fac, Method: frame.HAggMean}
	}
	hl, err := sym.Dfs.HorizontalAgg(nil, aggs)
	if err != nil {
		return nil, err
	}
	fa.Summary.WithHalfLife(hl)
	return fa, nil
}
