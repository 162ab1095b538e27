package loader

import (
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/strategy"
)

// WithStrategies parses strategy work strings, injects the factors they
// need, then evaluates every work against every frame in parallel. Each
// work adds one position column named after its work string.
func (dl *DataLoader) WithStrategies(works []string) (*DataLoader, error) {
	parsed := make([]*strategy.StrategyWork, len(works))
	for i, w := range works {
		sw, err := strategy.ParseWork(w)
		if err != nil {
			return nil, err
		}
		parsed[i] = sw
	}
	return dl.WithStrategyWorks(parsed)
}

// WithStrategyWorks evaluates pre-built works against every frame.
func (dl *DataLoader) WithStrategyWorks(works []*strategy.StrategyWork) (*DataLoader, error) {
	// Materialize the factor columns first so repeated works share them.
	facNames := make([]string, 0, len(works))
	for _, w := range works {
		if w.Fac != "" {
			facNames = append(facNames, w.Fac)
		}
	}
	prepared, err := dl.WithFacs(facNames, core.BackendExpr)
	if err != nil {
		return nil, err
	}

	out := prepared.ParApply(func(f *frame.Frame) *frame.Frame {
		cur := f
		for _, w := range works {
			s, err := w.Eval(cur)
			if err != nil {
				return frame.NewErr(err)
			}
			cur = cur.WithColumn(seriesExpr(s))
			if cur.Err() != nil {
				return cur
			}
		}
		return cur
	})
	if err := out.Dfs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
