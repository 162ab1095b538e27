package frame

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
)

// GroupedFrame is a pending group-by, consumed by Agg.
type GroupedFrame struct {
	f             *Frame
	keys          []string
	maintainOrder bool
	err           error
}

// GroupBy partitions the frame by key columns. With maintainOrder the output
// groups keep first-appearance order, otherwise they sort by key.
func (f *Frame) GroupBy(keys []string, maintainOrder bool) *GroupedFrame {
	if len(keys) == 0 {
		return &GroupedFrame{err: fmt.Errorf("%w: group_by needs at least one key", core.ErrShape)}
	}
	return &GroupedFrame{f: f, keys: keys, maintainOrder: maintainOrder}
}

// Agg evaluates each expression once per group; every expression must reduce
// to a single value. The result holds the key columns plus one column per
// expression.
func (g *GroupedFrame) Agg(exprs ...Expr) *Frame {
	if g.err != nil {
		return NewErr(g.err)
	}
	df, err := g.f.DF()
	if err != nil {
		return NewErr(err)
	}
	groups, order, err := partition(df, g.keys, g.maintainOrder)
	if err != nil {
		return NewErr(err)
	}

	keyRecords := make([][]string, len(g.keys))
	for i := range keyRecords {
		keyRecords[i] = df.Col(g.keys[i]).Records()
	}
	keyTypes := make([]series.Type, len(g.keys))
	for i, k := range g.keys {
		keyTypes[i] = df.Col(k).Type()
	}

	outKeys := make([][]string, len(g.keys))
	outAggs := make([][]float64, len(exprs))
	outStrs := make([][]string, len(exprs))
	for gi, key := range order {
		rows := groups[key]
		sub := df.Subset(rows)
		if sub.Err != nil {
			return NewErr(sub.Err)
		}
		ctx := &Ctx{DF: sub}
		for ei, e := range exprs {
			c, err := e.Eval(ctx)
			if err != nil {
				return NewErr(err)
			}
			if c.Len() != 1 {
				return NewErr(fmt.Errorf("%w: agg %q returned %d values for one group",
					core.ErrShape, e.Name(), c.Len()))
			}
			if c.IsStr() {
				if outStrs[ei] == nil {
					outStrs[ei] = make([]string, len(order))
				}
				outStrs[ei][gi] = c.Strs[0]
			} else {
				if outAggs[ei] == nil {
					outAggs[ei] = make([]float64, len(order))
				}
				outAggs[ei][gi] = c.Floats[0]
			}
		}
		for ki := range g.keys {
			if outKeys[ki] == nil {
				outKeys[ki] = make([]string, len(order))
			}
			outKeys[ki][gi] = keyRecords[ki][rows[0]]
		}
	}

	cols := make([]series.Series, 0, len(g.keys)+len(exprs))
	for ki, k := range g.keys {
		cols = append(cols, series.New(outKeys[ki], keyTypes[ki], k))
	}
	for ei, e := range exprs {
		if outStrs[ei] != nil {
			cols = append(cols, series.New(outStrs[ei], series.String, e.Name()))
		} else {
			vals := outAggs[ei]
			if vals == nil {
				vals = make([]float64, len(order))
			}
			cols = append(cols, series.New(vals, series.Float, e.Name()))
		}
	}
	out := dataframe.New(cols...)
	if out.Err != nil {
		return NewErr(out.Err)
	}
	return New(out)
}

// partition maps each composite key to its row indexes. The returned order
// is first appearance when maintainOrder is set, sorted otherwise.
func partition(df dataframe.DataFrame, keys []string, maintainOrder bool) (map[string][]int, []string, error) {
	recs := make([][]string, len(keys))
	for i, k := range keys {
		s := df.Col(k)
		if s.Err != nil {
			return nil, nil, fmt.Errorf("%w: %v", core.ErrSchema, s.Err)
		}
		recs[i] = s.Records()
	}
	groups := map[string][]int{}
	var order []string
	for r := 0; r < df.Nrow(); r++ {
		parts := make([]string, len(keys))
		for i := range keys {
			parts[i] = recs[i][r]
		}
		key := strings.Join(parts, "\x1f")
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	if !maintainOrder {
		sort.Slice(order, func(a, b int) bool { return keyLess(order[a], order[b]) })
	}
	return groups, order, nil
}

// keyLess compares composite keys part-wise, numerically where both parts
// parse as numbers, so time buckets come out in time order rather than
// lexicographic order (800 before 1600).
func keyLess(a, b string) bool {
	as := strings.Split(a, "\x1f")
	bs := strings.Split(b, "\x1f")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		af, aerr := strconv.ParseFloat(as[i], 64)
		bf, berr := strconv.ParseFloat(bs[i], 64)
		if aerr == nil && berr == nil {
			return af < bf
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}

// DynamicGroup is a pending time-bucketed group-by, consumed by Agg.
type DynamicGroup struct {
	f       *Frame
	timeCol string
	every   int64
	closed  core.ClosedWindow
	label   core.Label
	extraBy []string
	err     error
}

// GroupByDynamic buckets rows into fixed windows of every milliseconds over
// an epoch-millisecond time column, optionally sub-grouped by extraBy.
func (f *Frame) GroupByDynamic(timeCol string, every int64, closed core.ClosedWindow, label core.Label, extraBy ...string) *DynamicGroup {
	if every <= 0 {
		return &DynamicGroup{err: fmt.Errorf("%w: window must be positive, got %d", core.ErrShape, every)}
	}
	return &DynamicGroup{f: f, timeCol: timeCol, every: every, closed: closed, label: label, extraBy: extraBy}
}

// Agg aggregates each window. The output time column carries the window's
// left or right boundary depending on the label side.
func (d *DynamicGroup) Agg(exprs ...Expr) *Frame {
	if d.err != nil {
		return NewErr(d.err)
	}
	df, err := d.f.DF()
	if err != nil {
		return NewErr(err)
	}
	times := df.Col(d.timeCol)
	if times.Err != nil {
		return NewErr(fmt.Errorf("%w: %v", core.ErrSchema, times.Err))
	}
	buckets := make([]float64, df.Nrow())
	for i, t := range times.Float() {
		if math.IsNaN(t) {
			buckets[i] = math.NaN()
			continue
		}
		ti := int64(t)
		// A right-closed window owns its right edge, so the edge point
		// belongs to the preceding bucket.
		if d.closed == core.ClosedRight {
			ti--
		}
		b := ti / d.every * d.every
		if ti < 0 && ti%d.every != 0 {
			b -= d.every
		}
		if d.label == core.LabelRight {
			b += d.every
		}
		buckets[i] = float64(b)
	}

	const bucketCol = "__bucket"
	work := df.Mutate(series.New(buckets, series.Float, bucketCol))
	if work.Err != nil {
		return NewErr(work.Err)
	}
	keys := append([]string{bucketCol}, d.extraBy...)
	out := New(work).GroupBy(keys, false).Agg(exprs...)
	if out.Err() != nil {
		return out
	}
	return out.Rename(map[string]string{bucketCol: d.timeCol}).Collect()
}
