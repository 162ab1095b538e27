package factor

import (
	"math"

	"github.com/go-gota/gota/series"
	"github.com/markcheno/go-talib"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
)

// Technical-indicator factors run through talib on materialized frames,
// which makes them TFactors: they need whole slices up front and cannot be
// expressed as row-level expressions.

type talibFactor struct {
	base string
	p    param.Param
	cols []string
	run  func(in [][]float64, n int) []float64
}

func (f talibFactor) Name() string { return FormatName(f.base, f.p) }

func (f talibFactor) Eval(fr *frame.Frame) (series.Series, error) {
	in := make([][]float64, len(f.cols))
	for i, c := range f.cols {
		vals, err := fr.Floats(c)
		if err != nil {
			return series.Series{}, err
		}
		in[i] = vals
	}
	n := f.p.AsInt()
	if n < 2 {
		n = 14
	}
	out := f.run(in, n)
	// talib pads the warmup span with zeros; those slots are not real
	// indicator values.
	for i := 0; i < len(out) && i < n; i++ {
		out[i] = math.NaN()
	}
	return series.New(out, series.Float, f.Name()), nil
}

// Rsi is the relative strength index of close.
func Rsi(p param.Param) TFactor {
	return talibFactor{base: "rsi", p: p, cols: []string{"close"},
		run: func(in [][]float64, n int) []float64 { return talib.Rsi(in[0], n) }}
}

// Cci is the commodity channel index.
func Cci(p param.Param) TFactor {
	return talibFactor{base: "cci", p: p, cols: []string{"high", "low", "close"},
		run: func(in [][]float64, n int) []float64 { return talib.Cci(in[0], in[1], in[2], n) }}
}

// Wr is Williams %R.
func Wr(p param.Param) TFactor {
	return talibFactor{base: "wr", p: p, cols: []string{"high", "low", "close"},
		run: func(in [][]float64, n int) []float64 { return talib.WillR(in[0], in[1], in[2], n) }}
}

// Mfi is the money flow index.
func Mfi(p param.Param) TFactor {
	return talibFactor{base: "mfi", p: p, cols: []string{"high", "low", "close", "volume"},
		run: func(in [][]float64, n int) []float64 { return talib.Mfi(in[0], in[1], in[2], in[3], n) }}
}

// Atr is the average true range.
func Atr(p param.Param) TFactor {
	return talibFactor{base: "atr", p: p, cols: []string{"high", "low", "close"},
		run: func(in [][]float64, n int) []float64 { return talib.Atr(in[0], in[1], in[2], n) }}
}

func init() {
	MustRegisterT("rsi", func(p param.Param) (TFactor, error) { return Rsi(p), nil })
	MustRegisterT("cci", func(p param.Param) (TFactor, error) { return Cci(p), nil })
	MustRegisterT("wr", func(p param.Param) (TFactor, error) { return Wr(p), nil })
	MustRegisterT("mfi", func(p param.Param) (TFactor, error) { return Mfi(p), nil })
	MustRegisterT("atr", func(p param.Param) (TFactor, error) { return Atr(p), nil })
}
