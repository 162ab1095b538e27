package core

// Backend selects which factor registry is tried first when parsing
// factor names inside the loader.
type Backend int

const (
	// BackendExpr prefers expression-lowering factors.
	BackendExpr Backend = iota
	// BackendTable prefers factors evaluated directly against eager tables.
	BackendTable
)

// CorrMethod selects the correlation estimator used by the analysis engine.
type CorrMethod int

const (
	Pearson CorrMethod = iota
	Spearman
)

func (m CorrMethod) String() string {
	if m == Spearman {
		return "spearman"
	}
	return "pearson"
}

// ClosedWindow controls which side of a time bucket is inclusive.
type ClosedWindow int

const (
	ClosedLeft ClosedWindow = iota
	ClosedRight
)

// Label controls whether a time bucket is labelled by its start or its end.
type Label int

const (
	LabelLeft Label = iota
	LabelRight
)
