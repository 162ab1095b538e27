// Package strategy converts factor series into position series. A strategy
// is registered under its name, built from a params tuple, and evaluated
// against a factor column with optional entry/exit filter conditions.
package strategy

import (
	"fmt"
	"math"
	"sync"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/param"
)

// FilterCols carries the four filter conditions as 0/1/NaN columns. Nil
// slices fall back to the defaults: opens always allowed, closes never
// forced.
type FilterCols struct {
	LongOpen   []float64
	LongClose  []float64
	ShortOpen  []float64
	ShortClose []float64
}

// truthy treats null as false.
func truthy(col []float64, i int, def bool) bool {
	if col == nil {
		return def
	}
	v := col[i]
	return !math.IsNaN(v) && v != 0
}

func (f *FilterCols) longOpen(i int) bool {
	if f == nil {
		return true
	}
	return truthy(f.LongOpen, i, true)
}

func (f *FilterCols) longClose(i int) bool {
	if f == nil {
		return false
	}
	return truthy(f.LongClose, i, false)
}

func (f *FilterCols) shortOpen(i int) bool {
	if f == nil {
		return true
	}
	return truthy(f.ShortOpen, i, true)
}

func (f *FilterCols) shortClose(i int) bool {
	if f == nil {
		return false
	}
	return truthy(f.ShortClose, i, false)
}

// Strategy converts a factor series into a position series in [-1, 1].
type Strategy interface {
	Name() string
	EvalToFac(fac []float64, filters *FilterCols) ([]float64, error)
}

// Builder constructs a strategy from its parsed params tuple.
type Builder func(ps param.Params) (Strategy, error)

var (
	regMu       sync.RWMutex
	strategyMap = map[string]Builder{}
)

// Register binds a builder to a strategy name; duplicates error.
func Register(name string, b Builder) error {
	regMu.Lock()
	defer regMu.Unlock()
	if _, ok := strategyMap[name]; ok {
		return fmt.Errorf("%w: strategy %q already registered", core.ErrRegistry, name)
	}
	strategyMap[name] = b
	return nil
}

// MustRegister is Register but panics on duplicates.
func MustRegister(name string, b Builder) {
	if err := Register(name, b); err != nil {
		panic(err)
	}
}

// Build resolves a strategy name and params through the registry.
func Build(name string, ps param.Params) (Strategy, error) {
	regMu.RLock()
	b, ok := strategyMap[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", core.ErrParse, name)
	}
	return b(ps)
}

// formatName renders "<strategy>_(<params>)", matching the work grammar.
func formatName(base string, ps param.Params) string {
	if ps.Len() == 0 {
		return base
	}
	if ps.Len() == 1 {
		return base + "_(" + ps.Get(0).String() + ")"
	}
	return base + "_" + ps.String()
}
