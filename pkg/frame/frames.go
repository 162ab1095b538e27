package frame

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/samber/lo"
	"github.com/samber/lo/parallel"
)

// Frames is an ordered collection of frames, one per symbol.
type Frames []*Frame

// Apply maps a function over every frame, preserving order.
func (fs Frames) Apply(fn func(*Frame) *Frame) Frames {
	return lo.Map(fs, func(f *Frame, _ int) *Frame { return fn(f) })
}

// ParApply maps a function over every frame in parallel, preserving order.
func (fs Frames) ParApply(fn func(*Frame) *Frame) Frames {
	return parallel.Map(fs, func(f *Frame, _ int) *Frame { return fn(f) })
}

// TryApply maps a fallible function over every frame and stops at the first
// error.
func (fs Frames) TryApply(fn func(*Frame) (*Frame, error)) (Frames, error) {
	out := make(Frames, len(fs))
	for i, f := range fs {
		nf, err := fn(f)
		if err != nil {
			return nil, err
		}
		out[i] = nf
	}
	return out, nil
}

// Lazy makes every frame lazy.
func (fs Frames) Lazy() Frames {
	return fs.Apply((*Frame).Lazy)
}

// Collect materializes every frame, in parallel when par is set, and
// returns the first error found.
func (fs Frames) Collect(par bool) (Frames, error) {
	var out Frames
	if par {
		out = fs.ParApply((*Frame).Collect)
	} else {
		out = fs.Apply((*Frame).Collect)
	}
	for _, f := range out {
		if f.Err() != nil {
			return nil, f.Err()
		}
	}
	return out, nil
}

// Err returns the first sticky error across the collection.
func (fs Frames) Err() error {
	for _, f := range fs {
		if f != nil && f.Err() != nil {
			return f.Err()
		}
	}
	return nil
}

// HAggMethod selects how HorizontalAgg folds values across frames.
type HAggMethod int

const (
	// HAggFirst takes the first non-null value across frames.
	HAggFirst HAggMethod = iota
	// HAggMean averages valid values across frames.
	HAggMean
	// HAggWeightMean averages valid values weighted by a weight column.
	HAggWeightMean
)

// HAgg names one column to fold and the method to fold it with. WeightCol is
// only read for HAggWeightMean; As renames the output column when set.
type HAgg struct {
	Col       string
	Method    HAggMethod
	WeightCol string
	As        string
}

// HorizontalAgg folds columns elementwise across aligned frames: row i of
// the result aggregates row i of every frame. All frames must share height.
func (fs Frames) HorizontalAgg(keys []string, aggs []HAgg) (*Frame, error) {
	if len(fs) == 0 {
		return nil, fmt.Errorf("%w: horizontal agg over no frames", core.ErrShape)
	}
	dfs := make([]dataframe.DataFrame, len(fs))
	for i, f := range fs {
		df, err := f.DF()
		if err != nil {
			return nil, err
		}
		dfs[i] = df
		if df.Nrow() != dfs[0].Nrow() {
			return nil, fmt.Errorf("%w: frame %d has %d rows, expected %d",
				core.ErrShape, i, df.Nrow(), dfs[0].Nrow())
		}
	}
	height := dfs[0].Nrow()
	out := make([]series.Series, 0, len(keys)+len(aggs))
	for _, k := range keys {
		out = append(out, dfs[0].Col(k))
	}
	for _, agg := range aggs {
		vals := make([][]float64, len(dfs))
		var weights [][]float64
		if agg.Method == HAggWeightMean {
			weights = make([][]float64, len(dfs))
		}
		for i, df := range dfs {
			vals[i] = df.Col(agg.Col).Float()
			if weights != nil {
				weights[i] = df.Col(agg.WeightCol).Float()
			}
		}
		folded := make([]float64, height)
		for r := 0; r < height; r++ {
			folded[r] = foldRow(agg.Method, vals, weights, r)
		}
		name := agg.Col
		if agg.As != "" {
			name = agg.As
		}
		out = append(out, series.New(folded, series.Float, name))
	}
	res := dataframe.New(out...)
	if res.Err != nil {
		return nil, res.Err
	}
	return New(res), nil
}

func foldRow(m HAggMethod, vals, weights [][]float64, r int) float64 {
	switch m {
	case HAggFirst:
		for i := range vals {
			if v := vals[i][r]; !math.IsNaN(v) {
				return v
			}
		}
		return math.NaN()
	case HAggMean:
		sum, n := 0.0, 0
		for i := range vals {
			if v := vals[i][r]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			return math.NaN()
		}
		return sum / float64(n)
	case HAggWeightMean:
		num, den := 0.0, 0.0
		for i := range vals {
			v, w := vals[i][r], weights[i][r]
			if !math.IsNaN(v) && !math.IsNaN(w) {
				num += v * w
				den += w
			}
		}
		if den == 0 {
			return math.NaN()
		}
		return num / den
	default:
		return math.NaN()
	}
}
