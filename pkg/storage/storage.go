package storage

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/raykavin/factorlab/pkg/analyse"
	"github.com/raykavin/factorlab/pkg/frame"
)

// RunRecord is one persisted factor-analysis run: which factors and labels
// were analysed plus the finished report tables encoded as CSV.
type RunRecord struct {
	ID        int64             `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Facs      []string          `json:"facs" gorm:"-"`
	Labels    []string          `json:"labels" gorm:"-"`
	Tables    map[string]string `json:"tables" gorm:"-"`
}

// RunFilter selects runs during retrieval.
type RunFilter func(RunRecord) bool

// Storage persists analysis runs.
type Storage interface {
	// CreateRun stores a new run
	CreateRun(ctx context.Context, run *RunRecord) error

	// UpdateRun updates an existing run
	UpdateRun(ctx context.Context, run *RunRecord) error

	// Runs retrieves runs based on provided filters
	Runs(ctx context.Context, filters ...RunFilter) ([]*RunRecord, error)
}

func WithName(name string) RunFilter {
	return func(run RunRecord) bool {
		return run.Name == name
	}
}

func WithNamePrefix(prefix string) RunFilter {
	return func(run RunRecord) bool {
		return strings.HasPrefix(run.Name, prefix)
	}
}

func WithFac(fac string) RunFilter {
	return func(run RunRecord) bool {
		return slices.Contains(run.Facs, fac)
	}
}

func WithCreatedAfter(t time.Time) RunFilter {
	return func(run RunRecord) bool {
		return run.CreatedAt.After(t)
	}
}

func matchAll(run RunRecord, filters []RunFilter) bool {
	for _, filter := range filters {
		if !filter(run) {
			return false
		}
	}
	return true
}

// NewRunRecord snapshots a finished report into a storable record. Each
// composite metric table is rendered to CSV under its metric name.
func NewRunRecord(name string, report *analyse.SummaryReport) (*RunRecord, error) {
	facs := make([]string, len(report.Facs))
	for i, fs := range report.Facs {
		facs[i] = fs.Fac
	}
	run := &RunRecord{
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Facs:      facs,
		Labels:    report.Labels,
		Tables:    make(map[string]string),
	}

	metrics := map[string]*frame.Frame{
		"ic":        report.IC(),
		"ic_std":    report.ICStd(),
		"ir":        report.IR(),
		"ic_skew":   report.ICSkew(),
		"ic_kurt":   report.ICKurt(),
		"half_life": report.HalfLife(),
	}
	for metric, f := range metrics {
		csv, err := frameCSV(f)
		if err != nil {
			return nil, err
		}
		run.Tables[metric] = csv
	}
	if overall, err := report.ICOverall(); err == nil {
		if csv, err := frameCSV(overall); err == nil {
			run.Tables["ic_overall"] = csv
		}
	}
	if tsIC, err := report.TsIC(); err == nil {
		if csv, err := frameCSV(tsIC); err == nil {
			run.Tables["ts_ic"] = csv
		}
	}
	if groupRets, err := report.GroupRets(); err == nil {
		if csv, err := frameCSV(groupRets); err == nil {
			run.Tables["group_rets"] = csv
		}
	}
	return run, nil
}

func frameCSV(f *frame.Frame) (string, error) {
	df, err := f.DF()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := df.WriteCSV(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
