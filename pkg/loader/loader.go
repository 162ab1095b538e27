// Package loader manages per-symbol frames under shared metadata: symbol
// list, data source, frequency and time range. It is the entry point for
// injecting factors and strategies column-wise across every symbol.
package loader

import (
	"fmt"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/logger"
)

// DataLoader is a collection of per-symbol frames plus shared metadata.
// Dfs[i] belongs to Symbols[i].
type DataLoader struct {
	Typ        string             // data source tag, e.g. "rq" or "coin"
	Dfs        frame.Frames
	Symbols    []string
	Freq       string             // bar frequency, e.g. "1m", "daily"
	Start, End int64              // epoch ms bounds, 0 when unbounded
	Multiplier map[string]float64 // contract multiplier per symbol

	log logger.Logger
}

// New builds an empty loader for a data source.
func New(typ string) *DataLoader {
	return &DataLoader{Typ: typ, log: logger.Default()}
}

// NewWithSymbols builds a loader that knows its symbols but has no frames
// yet.
func NewWithSymbols(typ string, symbols []string) *DataLoader {
	dl := New(typ)
	dl.Symbols = symbols
	return dl
}

// NewFromDfs wraps anonymous frames; symbols are numbered positionally.
func NewFromDfs(typ string, dfs frame.Frames) *DataLoader {
	dl := New(typ)
	dl.Dfs = dfs
	dl.Symbols = make([]string, len(dfs))
	for i := range dfs {
		dl.Symbols[i] = fmt.Sprintf("%d", i)
	}
	return dl
}

// NewFromSymbolDfs pairs symbols with their frames; the lengths must match.
func NewFromSymbolDfs(typ string, symbols []string, dfs frame.Frames) (*DataLoader, error) {
	if len(symbols) != len(dfs) {
		return nil, fmt.Errorf("%w: %d symbols but %d frames", core.ErrShape, len(symbols), len(dfs))
	}
	dl := New(typ)
	dl.Symbols = symbols
	dl.Dfs = dfs
	return dl, nil
}

// WithLogger installs the logger used for loader diagnostics.
func (dl *DataLoader) WithLogger(log logger.Logger) *DataLoader {
	dl.log = log
	return dl
}

func (dl *DataLoader) logger() logger.Logger {
	if dl.log == nil {
		return logger.Default()
	}
	return dl.log
}

// Len returns the number of symbols.
func (dl *DataLoader) Len() int { return len(dl.Dfs) }

// IsEmpty reports whether the loader holds no frames.
func (dl *DataLoader) IsEmpty() bool { return len(dl.Dfs) == 0 }

// Frame returns the i-th frame.
func (dl *DataLoader) Frame(i int) (*frame.Frame, error) {
	if i < 0 || i >= len(dl.Dfs) {
		return nil, fmt.Errorf("%w: frame index %d out of range [0,%d)", core.ErrShape, i, len(dl.Dfs))
	}
	return dl.Dfs[i], nil
}

// FrameBySymbol returns the frame of a symbol.
func (dl *DataLoader) FrameBySymbol(symbol string) (*frame.Frame, error) {
	for i, s := range dl.Symbols {
		if s == symbol {
			return dl.Dfs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: unknown symbol %q", core.ErrSchema, symbol)
}

// DailyCol names the per-day key column: daily data keys on time itself,
// intraday data carries a trading_date column.
func (dl *DataLoader) DailyCol() string {
	if dl.Freq == "daily" {
		return "time"
	}
	return "trading_date"
}

// Each runs fn over (symbol, frame) pairs in order.
func (dl *DataLoader) Each(fn func(symbol string, f *frame.Frame) error) error {
	for i, f := range dl.Dfs {
		if err := fn(dl.Symbols[i], f); err != nil {
			return err
		}
	}
	return nil
}

// CopyWithDfs clones the metadata around a new set of frames.
func (dl *DataLoader) CopyWithDfs(dfs frame.Frames) *DataLoader {
	out := *dl
	out.Dfs = dfs
	return &out
}

// EmptyCopy clones the metadata with no frames.
func (dl *DataLoader) EmptyCopy() *DataLoader {
	return dl.CopyWithDfs(nil)
}

// Lazy switches every frame to lazy mode.
func (dl *DataLoader) Lazy() *DataLoader {
	return dl.CopyWithDfs(dl.Dfs.Lazy())
}

// Collect materializes every frame, in parallel when par is set.
func (dl *DataLoader) Collect(par bool) (*DataLoader, error) {
	dfs, err := dl.Dfs.Collect(par)
	if err != nil {
		return nil, err
	}
	return dl.CopyWithDfs(dfs), nil
}

// Schema returns the first frame's column names; factor injection assumes a
// shared schema across symbols.
func (dl *DataLoader) Schema() ([]string, error) {
	if dl.IsEmpty() {
		return nil, nil
	}
	return dl.Dfs[0].Schema()
}
