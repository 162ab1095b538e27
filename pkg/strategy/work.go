package strategy

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/factor"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
)

// StrategyWork binds a factor name, a strategy and optional filter chains
// into one evaluatable unit. Its textual form is
// "<fac>__<strategy>_(<params>)[~filters][*stopfilters]".
type StrategyWork struct {
	Fac         string
	Strategy    Strategy
	Filters     Filters
	StopFilters StopFilters
	OutName     string
}

// ParseWork parses a work string back into its parts.
func ParseWork(s string) (*StrategyWork, error) {
	full := s
	fac := ""
	if i := strings.Index(s, "__"); i >= 0 {
		fac, s = s[:i], s[i+2:]
	}
	var stops StopFilters
	if i := strings.Index(s, StopFilterSymbol); i >= 0 {
		var err error
		stops, err = ParseStopFilters(s[i+1:])
		if err != nil {
			return nil, err
		}
		s = s[:i]
	}
	var filters Filters
	if i := strings.Index(s, FilterSymbol); i >= 0 {
		var err error
		filters, err = ParseFilters(s[i+1:])
		if err != nil {
			return nil, err
		}
		s = s[:i]
	}
	i := strings.Index(s, "_(")
	if i < 0 {
		return nil, fmt.Errorf("%w: strategy params must be a tuple in %q", core.ErrParse, full)
	}
	name, ps := s[:i], param.ParseParams(s[i+1:])
	strat, err := Build(name, ps)
	if err != nil {
		return nil, err
	}
	return &StrategyWork{
		Fac:         fac,
		Strategy:    strat,
		Filters:     filters,
		StopFilters: stops,
		OutName:     full,
	}, nil
}

// Name returns the output column name: the explicit name when set, the
// canonical work string otherwise.
func (w *StrategyWork) Name() string {
	if w.OutName != "" {
		return w.OutName
	}
	name := w.Strategy.Name()
	if w.Fac != "" {
		name = w.Fac + "__" + name
	}
	if len(w.Filters) > 0 {
		name += FilterSymbol + w.Filters.String()
	}
	if len(w.StopFilters) > 0 {
		name += StopFilterSymbol + w.StopFilters.String()
	}
	return name
}

// PlFactor resolves the bound factor through the registry; a work without a
// factor returns nil.
func (w *StrategyWork) PlFactor() (factor.PlFactor, error) {
	if w.Fac == "" {
		return nil, nil
	}
	return factor.ParsePlFactor(w.Fac)
}

// filterCols evaluates the filter chains against the frame. Stop conditions
// go through the sticky transform so a triggered stop persists until the
// matching open fires again.
func (w *StrategyWork) filterCols(df *frame.Frame) (*FilterCols, error) {
	if len(w.Filters) == 0 && len(w.StopFilters) == 0 {
		return nil, nil
	}
	longOpen, shortOpen := frame.LitBool(true), frame.LitBool(true)
	if len(w.Filters) > 0 {
		pair, err := w.Filters.Exprs()
		if err != nil {
			return nil, err
		}
		longOpen, shortOpen = pair[0], pair[1]
	}
	longClose, shortClose := frame.LitBool(false), frame.LitBool(false)
	if len(w.StopFilters) > 0 {
		pair, err := w.StopFilters.PreprocessedExprs(longOpen, shortOpen)
		if err != nil {
			return nil, err
		}
		longClose, shortClose = pair[0], pair[1]
	}
	cols := df.Select(
		longOpen.Alias("long_open"),
		longClose.Alias("long_close"),
		shortOpen.Alias("short_open"),
		shortClose.Alias("short_close"),
	)
	if cols.Err() != nil {
		return nil, cols.Err()
	}
	lo, err := cols.Floats("long_open")
	if err != nil {
		return nil, err
	}
	lc, err := cols.Floats("long_close")
	if err != nil {
		return nil, err
	}
	so, err := cols.Floats("short_open")
	if err != nil {
		return nil, err
	}
	sc, err := cols.Floats("short_close")
	if err != nil {
		return nil, err
	}
	return &FilterCols{LongOpen: lo, LongClose: lc, ShortOpen: so, ShortClose: sc}, nil
}

// Eval resolves the factor column, evaluates the filters and runs the
// strategy, returning the position series under the work's name.
func (w *StrategyWork) Eval(df *frame.Frame) (series.Series, error) {
	var fac []float64
	if w.Fac != "" {
		if df.HasColumn(w.Fac) {
			vals, err := df.Floats(w.Fac)
			if err != nil {
				return series.Series{}, err
			}
			fac = vals
		} else {
			pl, err := w.PlFactor()
			if err != nil {
				return series.Series{}, err
			}
			e, err := pl.Expr()
			if err != nil {
				return series.Series{}, err
			}
			out := df.Select(e.Alias("fac"))
			if out.Err() != nil {
				return series.Series{}, out.Err()
			}
			fac, err = out.Floats("fac")
			if err != nil {
				return series.Series{}, err
			}
		}
	} else {
		return series.Series{}, fmt.Errorf("%w: strategy work %q has no factor", core.ErrParse, w.Name())
	}
	filters, err := w.filterCols(df)
	if err != nil {
		return series.Series{}, err
	}
	pos, err := w.Strategy.EvalToFac(fac, filters)
	if err != nil {
		return series.Series{}, err
	}
	return series.New(pos, series.Float, w.Name()), nil
}
