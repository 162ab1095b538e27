package analyse

import (
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/loader"
)

// Summary accumulates per-factor analysis results. Every slice is indexed by
// factor position; per-symbol intermediates keep their loader so individual
// symbols stay inspectable.
type Summary struct {
	Facs   []string
	Labels []string

	// one loader per factor, one 1-row frame of per-label ICs per symbol
	SymbolIC  []*loader.DataLoader
	ICOverall []*frame.Frame

	// one time-series frame per factor, one column per label
	TsIC []*frame.Frame

	SymbolTsGroupRets []*loader.DataLoader
	TsGroupRets       []*frame.Frame

	SymbolGroupRets []*loader.DataLoader
	GroupRets       []*frame.Frame

	// single frame, one half-life column per factor
	HalfLife *frame.Frame
}

func NewSummary(facs, labels []string) *Summary {
	return &Summary{Facs: facs, Labels: labels}
}

func (s *Summary) WithSymbolIC(v []*loader.DataLoader) *Summary {
	s.SymbolIC = v
	return s
}

func (s *Summary) WithICOverall(v []*frame.Frame) *Summary {
	s.ICOverall = v
	return s
}

func (s *Summary) WithTsIC(v []*frame.Frame) *Summary {
	s.TsIC = v
	return s
}

func (s *Summary) WithSymbolTsGroupRets(v []*loader.DataLoader) *Summary {
	s.SymbolTsGroupRets = v
	return s
}

func (s *Summary) WithTsGroupRets(v []*frame.Frame) *Summary {
	s.TsGroupRets = v
	return s
}

func (s *Summary) WithSymbolGroupRets(v []*loader.DataLoader) *Summary {
	s.SymbolGroupRets = v
	return s
}

func (s *Summary) WithGroupRets(v []*frame.Frame) *Summary {
	s.GroupRets = v
	return s
}

func (s *Summary) WithHalfLife(v *frame.Frame) *Summary {
	s.HalfLife = v
	return s
}
