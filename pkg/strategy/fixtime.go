package strategy

import (
	"fmt"
	"math"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/param"
)

// FixTime holds a signalled position for n bars. Without a pos map the
// factor itself is the position signal; with thresholds (lo, hi) the factor
// maps to the configured three-way position values. A fresh non-zero signal
// during the hold restarts the clock.
type FixTime struct {
	N      int
	Bins   []float64 // nil disables the pos map
	Values []float64 // len(Bins)+1 position values
	ps     param.Params
	base   string
}

// newFixTime builds the hold strategy from (n) or (n, lo, hi) with the given
// three-way mapping values.
func newFixTime(base string, ps param.Params, values []float64, mapRequired bool) (*FixTime, error) {
	switch ps.Len() {
	case 0:
		return nil, fmt.Errorf("%w: %s strategy needs a hold param", core.ErrParse, base)
	case 1:
		if mapRequired {
			return nil, fmt.Errorf("%w: %s strategy needs thresholds", core.ErrParse, base)
		}
		return &FixTime{N: ps.Get(0).AsInt(), ps: ps, base: base}, nil
	case 3:
		return &FixTime{
			N:      ps.Get(0).AsInt(),
			Bins:   []float64{ps.Get(1).AsF64(), ps.Get(2).AsF64()},
			Values: values,
			ps:     ps,
			base:   base,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s strategy takes 1 or 3 params, got %d", core.ErrParse, base, ps.Len())
	}
}

func (s *FixTime) Name() string { return formatName(s.base, s.ps) }

// signal maps one factor value to a position signal.
func (s *FixTime) signal(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if s.Bins == nil {
		return v
	}
	for i, b := range s.Bins {
		if v < b {
			return s.Values[i]
		}
	}
	return s.Values[len(s.Values)-1]
}

// EvalToFac emits the signalled position for n bars after each signal.
func (s *FixTime) EvalToFac(fac []float64, filters *FilterCols) ([]float64, error) {
	out := make([]float64, len(fac))
	pos := 0.0
	hold := 0
	for i, v := range fac {
		sig := s.signal(v)
		if sig > 0 && !filters.longOpen(i) {
			sig = 0
		}
		if sig < 0 && !filters.shortOpen(i) {
			sig = 0
		}
		if sig != 0 {
			pos = sig
			hold = s.N
		} else if hold > 0 {
			hold--
			if hold == 0 {
				pos = 0
			}
		}
		if (pos > 0 && filters.longClose(i)) || (pos < 0 && filters.shortClose(i)) {
			pos = 0
			hold = 0
		}
		out[i] = pos
	}
	return out, nil
}

func clampValues(values []float64, long bool) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if long {
			out[i] = math.Max(v, 0)
		} else {
			out[i] = math.Min(v, 0)
		}
	}
	return out
}

func init() {
	MustRegister("fix_time", func(ps param.Params) (Strategy, error) {
		return newFixTime("fix_time", ps, []float64{-1, 0, 1}, false)
	})
	// The negated family maps low factor values to long positions, so a
	// threshold map is mandatory.
	MustRegister("neg_fix_time", func(ps param.Params) (Strategy, error) {
		return newFixTime("neg_fix_time", ps, []float64{1, 0, -1}, true)
	})
	MustRegister("neg_fix_time_long", func(ps param.Params) (Strategy, error) {
		return newFixTime("neg_fix_time_long", ps, clampValues([]float64{1, 0, -1}, true), true)
	})
	MustRegister("neg_fix_time_short", func(ps param.Params) (Strategy, error) {
		return newFixTime("neg_fix_time_short", ps, clampValues([]float64{1, 0, -1}, false), true)
	})
}
