package strategy

import (
	"fmt"
	"strings"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
)

// FilterSymbol separates the strategy token from its entry filters inside a
// work string; multiple filters also join with it.
const FilterSymbol = "~"

// Filter is a named builder of entry conditions. Its expressions gate when
// long and short positions may open.
type Filter struct {
	Name   string
	Params param.Params
}

// ParseFilter splits "trend_rev_(20,1)" into name "trend_rev" and its
// params: the token after the last underscore is the params tuple.
func ParseFilter(s string) (Filter, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 {
		return Filter{}, fmt.Errorf("%w: invalid filter %q", core.ErrParse, s)
	}
	return Filter{Name: s[:i], Params: param.ParseParams(s[i+1:])}, nil
}

// Exprs returns the [long_open, short_open] condition pair.
func (f Filter) Exprs() ([2]frame.Expr, error) {
	switch f.Name {
	case "trend":
		return f.trend(false, "close")
	case "trend_rev":
		return f.trend(true, "close")
	case "mid_trend":
		return f.trend(false, "mid")
	case "mid_trend_rev":
		return f.trend(true, "mid")
	default:
		return [2]frame.Expr{}, fmt.Errorf("%w: unsupported filter %q", core.ErrParse, f.Name)
	}
}

// trend gates entries on a rolling z-score of the price column: with-trend
// filters open longs when the score is at least m, reversal filters swap the
// sides.
func (f Filter) trend(rev bool, col string) ([2]frame.Expr, error) {
	if f.Params.Len() == 0 {
		return [2]frame.Expr{}, fmt.Errorf("%w: %s filter needs a window param", core.ErrParse, f.Name)
	}
	n := f.Params.Get(0).AsInt()
	m := 0.0
	if f.Params.Len() > 1 {
		m = f.Params.Get(1).AsF64()
	}
	opt := frame.Rolling(n)
	x := frame.ColExpr(col)
	z := x.Sub(x.RollingMean(opt)).ProtectDiv(x.RollingStd(opt))
	if rev {
		return [2]frame.Expr{z.Le(frame.Lit(-m)), z.Ge(frame.Lit(m))}, nil
	}
	return [2]frame.Expr{z.Ge(frame.Lit(m)), z.Le(frame.Lit(-m))}, nil
}

func (f Filter) String() string {
	return f.Name + "_" + f.Params.String()
}

// Filters is an AND-combined set of entry filters.
type Filters []Filter

// ParseFilters splits a filter chain on the filter symbol.
func ParseFilters(s string) (Filters, error) {
	parts := strings.Split(s, FilterSymbol)
	out := make(Filters, 0, len(parts))
	for _, p := range parts {
		f, err := ParseFilter(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Exprs AND-combines every filter's conditions into one [long_open,
// short_open] pair.
func (fs Filters) Exprs() ([2]frame.Expr, error) {
	if len(fs) == 0 {
		return [2]frame.Expr{}, fmt.Errorf("%w: empty filter chain", core.ErrParse)
	}
	var out [2]frame.Expr
	for i, f := range fs {
		pair, err := f.Exprs()
		if err != nil {
			return [2]frame.Expr{}, err
		}
		if i == 0 {
			out = pair
		} else {
			out[0] = out[0].And(pair[0])
			out[1] = out[1].And(pair[1])
		}
	}
	return out, nil
}

func (fs Filters) String() string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return strings.Join(parts, FilterSymbol)
}
