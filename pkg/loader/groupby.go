package loader

import (
	"fmt"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// GroupByTimeOpt tunes time-bucketed resampling. LastTime names a column
// whose last value per bucket should survive the aggregation; an explicit
// Closed side overrides the source default. By adds extra grouping columns
// alongside the time bucket.
type GroupByTimeOpt struct {
	LastTime string
	Closed   *core.ClosedWindow
	Label    core.Label
	By       []string
}

// sourceClosed maps known data sources to the window side their vendors
// close on.
var sourceClosed = map[string]core.ClosedWindow{
	"rq":   core.ClosedRight,
	"coin": core.ClosedLeft,
}

func (dl *DataLoader) closedSide(opt GroupByTimeOpt) core.ClosedWindow {
	if opt.Closed != nil {
		return *opt.Closed
	}
	if side, ok := sourceClosed[dl.Typ]; ok {
		return side
	}
	dl.logger().Warnf("unknown closed side for source %q, assuming left-closed windows", dl.Typ)
	return core.ClosedLeft
}

// DataLoaderGroupBy is a pending resample over every frame, consumed by Agg.
type DataLoaderGroupBy struct {
	dl   *DataLoader
	rule string
	opt  GroupByTimeOpt
	err  error
}

// GroupByTime buckets every frame by the rule: "daily" groups on the daily
// key column, any other rule parses as a duration (e.g. "30m", "4h") and
// buckets the epoch-millisecond time column.
func (dl *DataLoader) GroupByTime(rule string, opt GroupByTimeOpt) *DataLoaderGroupBy {
	return &DataLoaderGroupBy{dl: dl, rule: rule, opt: opt}
}

// Agg runs the aggregation expressions per bucket in every frame. When
// LastTime is set its per-bucket last value is carried into the output; if
// it names the bucket column itself, the carried value replaces the bucket
// label.
func (g *DataLoaderGroupBy) Agg(exprs ...frame.Expr) (*DataLoader, error) {
	if g.err != nil {
		return nil, g.err
	}
	dl := g.dl

	var timeCol string
	var every int64
	if g.rule == "daily" {
		timeCol = dl.DailyCol()
	} else {
		d, err := str2duration.ParseDuration(g.rule)
		if err != nil {
			return nil, fmt.Errorf("%w: unsupported group rule %q: %v", core.ErrDomain, g.rule, err)
		}
		timeCol = "time"
		every = d.Milliseconds()
	}

	aggs := exprs
	replaceTime := false
	if lt := g.opt.LastTime; lt != "" {
		if lt == timeCol {
			aggs = append(aggs, frame.ColExpr(lt).Last().Alias(lt+"_last"))
			replaceTime = true
		} else {
			aggs = append(aggs, frame.ColExpr(lt).Last().Alias(lt))
		}
	}

	closed := core.ClosedLeft
	if every > 0 {
		closed = dl.closedSide(g.opt)
	}

	out, err := dl.TryApply(func(f *frame.Frame) (*frame.Frame, error) {
		var res *frame.Frame
		if every > 0 {
			res = f.GroupByDynamic(timeCol, every, closed, g.opt.Label, g.opt.By...).Agg(aggs...)
		} else {
			res = f.GroupBy(append([]string{timeCol}, g.opt.By...), false).Agg(aggs...)
		}
		if res.Err() != nil {
			return nil, res.Err()
		}
		if replaceTime {
			res = res.Drop(timeCol).Rename(map[string]string{timeCol + "_last": timeCol}).Collect()
			if res.Err() != nil {
				return nil, res.Err()
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
