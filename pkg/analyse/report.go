package analyse

import (
	"fmt"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/metric"
	"gonum.org/v1/gonum/stat"
)

// FacSummary is one factor's finished report card. The per-label metric maps
// are derived from the IC time series; the frames keep the raw result groups.
type FacSummary struct {
	Fac    string
	IC     map[string]float64
	ICStd  map[string]float64
	IR     map[string]float64
	ICSkew map[string]float64
	ICKurt map[string]float64

	ICOverall   *frame.Frame
	TsIC        *frame.Frame
	TsGroupRets *frame.Frame
	GroupRets   *frame.Frame
	HalfLife    float64
}

// SummaryReport pivots a Summary by factor. Factors are addressable by name
// or position, and each composite metric stitches the per-factor rows into a
// single table tagged with a fac column.
type SummaryReport struct {
	Labels []string
	Facs   []FacSummary

	byName map[string]int
}

// Finish pivots the accumulated result groups into a per-factor report.
func (s *Summary) Finish() (*SummaryReport, error) {
	report := &SummaryReport{
		Labels: s.Labels,
		Facs:   make([]FacSummary, len(s.Facs)),
		byName: make(map[string]int, len(s.Facs)),
	}
	var halfLives map[string]float64
	if s.HalfLife != nil {
		halfLives = make(map[string]float64, len(s.Facs))
		for _, fac := range s.Facs {
			vals, err := s.HalfLife.Floats(fac)
			if err != nil {
				return nil, err
			}
			halfLives[fac] = vals[0]
		}
	}

	for i, fac := range s.Facs {
		fs := FacSummary{Fac: fac, HalfLife: math.NaN()}
		if i < len(s.ICOverall) {
			fs.ICOverall = s.ICOverall[i]
		}
		if i < len(s.TsGroupRets) {
			fs.TsGroupRets = s.TsGroupRets[i]
		}
		if i < len(s.GroupRets) {
			fs.GroupRets = s.GroupRets[i]
		}
		if halfLives != nil {
			fs.HalfLife = halfLives[fac]
		}
		if i < len(s.TsIC) {
			fs.TsIC = s.TsIC[i]
			if err := fs.fillICMoments(s.Labels); err != nil {
				return nil, err
			}
		}
		report.Facs[i] = fs
		report.byName[fac] = i
	}
	return report, nil
}

// fillICMoments computes mean, std, IR, skewness and kurtosis of the IC time
// series per label.
func (fs *FacSummary) fillICMoments(labels []string) error {
	fs.IC = make(map[string]float64, len(labels))
	fs.ICStd = make(map[string]float64, len(labels))
	fs.IR = make(map[string]float64, len(labels))
	fs.ICSkew = make(map[string]float64, len(labels))
	fs.ICKurt = make(map[string]float64, len(labels))
	for _, label := range labels {
		raw, err := fs.TsIC.Floats(label)
		if err != nil {
			return err
		}
		vals := raw[:0:0]
		for _, v := range raw {
			if !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		ic, std, skew, kurt := math.NaN(), math.NaN(), math.NaN(), math.NaN()
		if len(vals) > 0 {
			ic = stat.Mean(vals, nil)
		}
		if len(vals) > 1 {
			std = stat.StdDev(vals, nil)
		}
		if len(vals) > 2 {
			skew = stat.Skew(vals, nil)
		}
		if len(vals) > 3 {
			kurt = stat.ExKurtosis(vals, nil)
		}
		fs.IC[label] = ic
		fs.ICStd[label] = std
		fs.IR[label] = ic / std
		fs.ICSkew[label] = skew
		fs.ICKurt[label] = kurt
	}
	return nil
}

// At returns the summary of the i-th factor.
func (r *SummaryReport) At(i int) (FacSummary, error) {
	if i < 0 || i >= len(r.Facs) {
		return FacSummary{}, fmt.Errorf("%w: factor index %d out of range [0,%d)", core.ErrShape, i, len(r.Facs))
	}
	return r.Facs[i], nil
}

// Get returns a factor's summary by name.
func (r *SummaryReport) Get(fac string) (FacSummary, error) {
	i, ok := r.byName[fac]
	if !ok {
		return FacSummary{}, fmt.Errorf("%w: factor %q not in report", core.ErrParse, fac)
	}
	return r.Facs[i], nil
}

func (r *SummaryReport) metricTable(pick func(FacSummary) map[string]float64) *frame.Frame {
	facNames := make([]string, len(r.Facs))
	for i, fs := range r.Facs {
		facNames[i] = fs.Fac
	}
	cols := make([]series.Series, 0, len(r.Labels)+1)
	cols = append(cols, series.New(facNames, series.String, "fac"))
	for _, label := range r.Labels {
		vals := make([]float64, len(r.Facs))
		for i, fs := range r.Facs {
			vals[i] = math.NaN()
			if m := pick(fs); m != nil {
				vals[i] = m[label]
			}
		}
		cols = append(cols, series.New(vals, series.Float, label))
	}
	return frame.New(dataframe.New(cols...))
}

// IC is the factor x label table of mean ICs.
func (r *SummaryReport) IC() *frame.Frame {
	return r.metricTable(func(fs FacSummary) map[string]float64 { return fs.IC })
}

// ICStd is the factor x label table of IC standard deviations.
func (r *SummaryReport) ICStd() *frame.Frame {
	return r.metricTable(func(fs FacSummary) map[string]float64 { return fs.ICStd })
}

// IR is the factor x label table of information ratios (mean IC / IC std).
func (r *SummaryReport) IR() *frame.Frame {
	return r.metricTable(func(fs FacSummary) map[string]float64 { return fs.IR })
}

// ICSkew is the factor x label table of IC skewness.
func (r *SummaryReport) ICSkew() *frame.Frame {
	return r.metricTable(func(fs FacSummary) map[string]float64 { return fs.ICSkew })
}

// ICKurt is the factor x label table of IC excess kurtosis.
func (r *SummaryReport) ICKurt() *frame.Frame {
	return r.metricTable(func(fs FacSummary) map[string]float64 { return fs.ICKurt })
}

// HalfLife is the factor table of mean autocorrelation half-lives.
func (r *SummaryReport) HalfLife() *frame.Frame {
	facNames := make([]string, len(r.Facs))
	vals := make([]float64, len(r.Facs))
	for i, fs := range r.Facs {
		facNames[i] = fs.Fac
		vals[i] = fs.HalfLife
	}
	return frame.New(dataframe.New(
		series.New(facNames, series.String, "fac"),
		series.New(vals, series.Float, "half_life"),
	))
}

// stitch stacks per-factor frames vertically, tagging rows with a fac column.
func (r *SummaryReport) stitch(pick func(FacSummary) *frame.Frame) (*frame.Frame, error) {
	var out *frame.Frame
	for _, fs := range r.Facs {
		f := pick(fs)
		if f == nil {
			continue
		}
		tagged := f.WithColumn(frame.LitStr(fs.Fac).Alias("fac")).Collect()
		if tagged.Err() != nil {
			return nil, tagged.Err()
		}
		if out == nil {
			out = tagged
			continue
		}
		out = out.VStack(tagged).Collect()
		if out.Err() != nil {
			return nil, out.Err()
		}
	}
	if out == nil {
		return nil, fmt.Errorf("%w: no rows to stitch", core.ErrShape)
	}
	return out, nil
}

// ICOverall stitches the per-factor overall ICs into one table.
func (r *SummaryReport) ICOverall() (*frame.Frame, error) {
	return r.stitch(func(fs FacSummary) *frame.Frame { return fs.ICOverall })
}

// GroupRets stitches the per-factor group returns into one table.
func (r *SummaryReport) GroupRets() (*frame.Frame, error) {
	return r.stitch(func(fs FacSummary) *frame.Frame { return fs.GroupRets })
}

// TsGroupRets stitches the per-factor time-series group returns.
func (r *SummaryReport) TsGroupRets() (*frame.Frame, error) {
	return r.stitch(func(fs FacSummary) *frame.Frame { return fs.TsGroupRets })
}

// TsIC stitches the per-factor IC time series.
func (r *SummaryReport) TsIC() (*frame.Frame, error) {
	return r.stitch(func(fs FacSummary) *frame.Frame { return fs.TsIC })
}

func (r *SummaryReport) renderMetric(w io.Writer, title string, pick func(FacSummary) map[string]float64) {
	fmt.Fprintf(w, "------ %s -------\n", title)
	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"FAC"}, r.Labels...))
	table.SetColumnAlignment(append([]int{tablewriter.ALIGN_LEFT},
		make([]int, len(r.Labels))...))
	for _, fs := range r.Facs {
		row := []string{fs.Fac}
		for _, label := range r.Labels {
			v := math.NaN()
			if m := pick(fs); m != nil {
				v = m[label]
			}
			row = append(row, fmt.Sprintf("%.4f", v))
		}
		table.Append(row)
	}
	table.Render()
}

// Render writes the report's metric tables to w.
func (r *SummaryReport) Render(w io.Writer) {
	r.renderMetric(w, "IC", func(fs FacSummary) map[string]float64 { return fs.IC })
	r.renderMetric(w, "IR", func(fs FacSummary) map[string]float64 { return fs.IR })

	fmt.Fprintln(w, "------ HALF LIFE -------")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"FAC", "HALF LIFE"})
	for _, fs := range r.Facs {
		table.Append([]string{fs.Fac, fmt.Sprintf("%.1f", fs.HalfLife)})
	}
	table.Render()
}

// ICBootstrap estimates a confidence interval for one factor's IC statistic
// by resampling its IC time series.
func (r *SummaryReport) ICBootstrap(fac, label string, measure func([]float64) float64,
	samples int, confidence float64) (metric.BootstrapInterval, error) {

	fs, err := r.Get(fac)
	if err != nil {
		return metric.BootstrapInterval{}, err
	}
	if fs.TsIC == nil {
		return metric.BootstrapInterval{}, fmt.Errorf("%w: no IC time series for %q", core.ErrShape, fac)
	}
	raw, err := fs.TsIC.Floats(label)
	if err != nil {
		return metric.BootstrapInterval{}, err
	}
	vals := raw[:0:0]
	for _, v := range raw {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return metric.Bootstrap(vals, measure, samples, confidence), nil
}

// HistIC prints a histogram of one factor's IC series for a label.
func (r *SummaryReport) HistIC(w io.Writer, fac, label string, bins int) error {
	fs, err := r.Get(fac)
	if err != nil {
		return err
	}
	if fs.TsIC == nil {
		return fmt.Errorf("%w: no IC time series for %q", core.ErrShape, fac)
	}
	raw, err := fs.TsIC.Floats(label)
	if err != nil {
		return err
	}
	vals := raw[:0:0]
	for _, v := range raw {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	hist := histogram.Hist(bins, vals)
	return histogram.Fprint(w, hist, histogram.Linear(10))
}
