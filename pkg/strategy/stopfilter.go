package strategy

import (
	"fmt"
	"strings"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
)

// StopFilterSymbol separates the strategy token from its stop filters inside
// a work string; multiple stop filters also join with it.
const StopFilterSymbol = "*"

// StopFilter is a named builder of forced-close conditions.
type StopFilter struct {
	Name   string
	Params param.Params
}

// ParseStopFilter splits "market_stop_2" into name and params.
func ParseStopFilter(s string) (StopFilter, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 {
		return StopFilter{}, fmt.Errorf("%w: invalid stop filter %q", core.ErrParse, s)
	}
	return StopFilter{Name: s[:i], Params: param.ParseParams(s[i+1:])}, nil
}

// Exprs returns the [long_stop, short_stop] condition pair.
func (f StopFilter) Exprs() ([2]frame.Expr, error) {
	switch f.Name {
	case "market_stop":
		return f.marketStop()
	default:
		return [2]frame.Expr{}, fmt.Errorf("%w: unsupported stop filter %q", core.ErrParse, f.Name)
	}
}

// marketStop closes positions in the last n bars of each trading day: the
// bar's trading date differs from the date n bars ahead.
func (f StopFilter) marketStop() ([2]frame.Expr, error) {
	if f.Params.Len() == 0 {
		return [2]frame.Expr{}, fmt.Errorf("%w: market_stop needs a bar count", core.ErrParse)
	}
	n := f.Params.Get(0).AsInt()
	td := frame.ColExpr("trading_date")
	cond := td.Ne(td.Shift(-n))
	return [2]frame.Expr{cond, cond}, nil
}

func (f StopFilter) String() string {
	return f.Name + "_" + f.Params.String()
}

// Sticky rewrites a per-bar stop condition so that once triggered it stays
// true until the matching open condition fires again.
func Sticky(pointStop, open frame.Expr) frame.Expr {
	reset := frame.When(open).Then(frame.LitBool(false)).Otherwise(frame.NullLit())
	return frame.When(pointStop).Then(frame.LitBool(true)).Otherwise(reset).ForwardFill()
}

// StopFilters is an OR-combined set of stop filters.
type StopFilters []StopFilter

// ParseStopFilters splits a stop-filter chain on the stop symbol.
func ParseStopFilters(s string) (StopFilters, error) {
	parts := strings.Split(s, StopFilterSymbol)
	out := make(StopFilters, 0, len(parts))
	for _, p := range parts {
		f, err := ParseStopFilter(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Exprs OR-combines every stop filter into one [long_stop, short_stop]
// pair of per-bar conditions.
func (fs StopFilters) Exprs() ([2]frame.Expr, error) {
	if len(fs) == 0 {
		return [2]frame.Expr{}, fmt.Errorf("%w: empty stop filter chain", core.ErrParse)
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
			out[0] = out[0].Or(pair[0])
			out[1] = out[1].Or(pair[1])
		}
	}
	return out, nil
}

// PreprocessedExprs returns the sticky [long_stop, short_stop] pair, given
// the open conditions that reset the stops.
func (fs StopFilters) PreprocessedExprs(longOpen, shortOpen frame.Expr) ([2]frame.Expr, error) {
	point, err := fs.Exprs()
	if err != nil {
		return [2]frame.Expr{}, err
	}
	return [2]frame.Expr{
		Sticky(point[0], longOpen),
		Sticky(point[1], shortOpen),
	}, nil
}

func (fs StopFilters) String() string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return strings.Join(parts, StopFilterSymbol)
}
