package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/samber/lo"
)

// WithLabels materializes label columns that are not already in the schema.
// Labels are forward returns: "ret_<n>" becomes the n-bar forward simple
// return of close and "log_ret_<n>" the forward log return. Any other
// missing label is refused rather than guessed at.
func (dl *DataLoader) WithLabels(labels []string) (*DataLoader, error) {
	schema, err := dl.Schema()
	if err != nil {
		return nil, err
	}
	var exprs []frame.Expr
	for _, label := range labels {
		if lo.Contains(schema, label) {
			continue
		}
		e, err := labelExpr(label)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e.Alias(label))
	}
	if len(exprs) == 0 {
		return dl, nil
	}
	return dl.WithColumns(exprs...).Collect(true)
}

// labelExpr lowers a label name to its forward-return expression. The
// trailing return over the horizon is shifted back by the horizon so each
// row carries the return realized over the next n bars.
func labelExpr(label string) (frame.Expr, error) {
	i := strings.LastIndex(label, "_")
	if i < 0 {
		return frame.Expr{}, fmt.Errorf("%w: label %q has no horizon suffix", core.ErrParse, label)
	}
	n, err := strconv.Atoi(label[i+1:])
	if err != nil || n <= 0 {
		return frame.Expr{}, fmt.Errorf("%w: label %q has no horizon suffix", core.ErrParse, label)
	}
	c := frame.ColExpr("close")
	switch label[:i] {
	case "ret":
		return c.PctChange(n).Shift(-n), nil
	case "log_ret":
		return c.ProtectDiv(c.Shift(n)).Log().Shift(-n), nil
	}
	return frame.Expr{}, fmt.Errorf("%w: cannot synthesize label %q, column absent from data",
		core.ErrParse, label)
}
