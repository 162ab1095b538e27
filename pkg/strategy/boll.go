package strategy

import (
	"fmt"
	"math"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/param"
	"gonum.org/v1/gonum/stat"
)

// Boll trades a rolling z-score of the factor: open long above m, open short
// below -m, close when the score crosses back through the exit threshold.
// An optional stop threshold closes against the position.
type Boll struct {
	N     int
	M     float64
	ExitM float64
	StopM float64 // 0 disables the stop
	ps    param.Params

	longSignal  float64
	shortSignal float64
}

// NewBoll builds a Boll strategy from (n[, m[, exit_m[, stop_m]]]).
func NewBoll(ps param.Params) (*Boll, error) {
	if ps.Len() == 0 {
		return nil, fmt.Errorf("%w: boll strategy needs a window param", core.ErrParse)
	}
	if ps.Len() > 4 {
		return nil, fmt.Errorf("%w: too many params for boll strategy", core.ErrParse)
	}
	b := &Boll{
		N:           ps.Get(0).AsInt(),
		ps:          ps,
		longSignal:  1,
		shortSignal: -1,
	}
	if ps.Len() > 1 {
		b.M = ps.Get(1).AsF64()
	}
	if ps.Len() > 2 {
		b.ExitM = ps.Get(2).AsF64()
	}
	if ps.Len() > 3 {
		b.StopM = ps.Get(3).AsF64()
	}
	return b, nil
}

func (b *Boll) Name() string { return formatName("boll", b.ps) }

// zscores computes the rolling z-score with min_periods n/2.
func zscores(fac []float64, n int) []float64 {
	mp := n / 2
	if mp < 2 {
		mp = 2
	}
	out := make([]float64, len(fac))
	window := make([]float64, 0, n)
	for i := range fac {
		lo := i - n + 1
		if lo < 0 {
			lo = 0
		}
		window = window[:0]
		for j := lo; j <= i; j++ {
			if v := fac[j]; !math.IsNaN(v) {
				window = append(window, v)
			}
		}
		if len(window) < mp {
			out[i] = math.NaN()
			continue
		}
		sd := stat.StdDev(window, nil)
		if sd == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (fac[i] - stat.Mean(window, nil)) / sd
	}
	return out
}

// EvalToFac walks the z-score with a position state machine.
func (b *Boll) EvalToFac(fac []float64, filters *FilterCols) ([]float64, error) {
	z := zscores(fac, b.N)
	out := make([]float64, len(fac))
	pos := 0.0
	for i, v := range z {
		if !math.IsNaN(v) {
			switch {
			case pos <= 0 && v >= b.M && filters.longOpen(i):
				pos = b.longSignal
			case pos >= 0 && v <= -b.M && filters.shortOpen(i):
				pos = b.shortSignal
			}
		}
		if pos > 0 {
			exit := !math.IsNaN(v) && v <= b.ExitM
			stop := b.StopM != 0 && !math.IsNaN(v) && v <= -b.StopM
			if exit || stop || filters.longClose(i) {
				pos = 0
			}
		} else if pos < 0 {
			exit := !math.IsNaN(v) && v >= -b.ExitM
			stop := b.StopM != 0 && !math.IsNaN(v) && v >= b.StopM
			if exit || stop || filters.shortClose(i) {
				pos = 0
			}
		}
		out[i] = pos
	}
	return out, nil
}

// bollLong is Boll with the short side disabled: a short signal closes
// instead of flipping.
type bollLong struct{ *Boll }

func (s bollLong) Name() string { return formatName("boll_long", s.ps) }

func (s bollLong) EvalToFac(fac []float64, filters *FilterCols) ([]float64, error) {
	inner := *s.Boll
	inner.shortSignal = 0
	return inner.EvalToFac(fac, filters)
}

// bollShort is Boll with the long side disabled.
type bollShort struct{ *Boll }

func (s bollShort) Name() string { return formatName("boll_short", s.ps) }

func (s bollShort) EvalToFac(fac []float64, filters *FilterCols) ([]float64, error) {
	inner := *s.Boll
	inner.longSignal = 0
	return inner.EvalToFac(fac, filters)
}

func init() {
	MustRegister("boll", func(ps param.Params) (Strategy, error) { return NewBoll(ps) })
	MustRegister("boll_long", func(ps param.Params) (Strategy, error) {
		b, err := NewBoll(ps)
		if err != nil {
			return nil, err
		}
		return bollLong{b}, nil
	})
	MustRegister("boll_short", func(ps param.Params) (Strategy, error) {
		b, err := NewBoll(ps)
		if err != nil {
			return nil, err
		}
		return bollShort{b}, nil
	})
}
