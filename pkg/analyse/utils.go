package analyse

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
)

// stableCorr correlates two expressions and clips the result to [-0.3, 0.3].
// Extreme IC readings are almost always artifacts of thin samples, so they
// are capped rather than trusted.
const icClip = 0.3

func stableCorr(a, b frame.Expr, method core.CorrMethod) frame.Expr {
	var corr frame.Expr
	switch method {
	case core.Spearman:
		corr = a.SpearmanCorr(b)
	default:
		corr = a.PearsonCorr(b)
	}
	return corr.Clip(-icClip, icClip)
}

// tsGroup buckets a factor into equal-count rank groups 1..g. Nulls stay
// null.
func tsGroup(fac frame.Expr, g int) frame.Expr {
	pct := fac.Rank(true)
	name := fmt.Sprintf("ts_group(%s, %d)", fac.Name(), g)
	return frame.NewExpr(name, func(ctx *frame.Ctx) (frame.Col, error) {
		c, err := pct.Eval(ctx)
		if err != nil {
			return frame.Col{}, err
		}
		out := make([]float64, len(c.Floats))
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				out[i] = math.NaN()
				continue
			}
			grp := math.Ceil(v * float64(g))
			if grp < 1 {
				grp = 1
			}
			out[i] = grp
		}
		return frame.Col{Floats: out}, nil
	})
}

// inferLabelPeriods reads the forward-return horizon from each label's
// trailing _<n> suffix.
func inferLabelPeriods(labels []string) ([]int, error) {
	periods := make([]int, len(labels))
	for i, label := range labels {
		idx := strings.LastIndex(label, "_")
		if idx < 0 {
			return nil, fmt.Errorf("%w: label %q has no _<n> horizon suffix", core.ErrParse, label)
		}
		n, err := strconv.Atoi(label[idx+1:])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: label %q has no _<n> horizon suffix", core.ErrParse, label)
		}
		periods[i] = n
	}
	return periods, nil
}
