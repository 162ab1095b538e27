package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/schollz/progressbar/v3"
)

// metaFile marks a directory as a saved loader and carries its metadata; a
// loader with zero symbols still round-trips through it.
const metaFile = "__empty.dl"

type loaderMeta struct {
	Typ        string             `json:"typ"`
	Symbols    []string           `json:"symbols"`
	Freq       string             `json:"freq"`
	Start      int64              `json:"start"`
	End        int64              `json:"end"`
	Multiplier map[string]float64 `json:"multiplier,omitempty"`
}

// Save writes the loader into a directory: a metadata file plus one CSV per
// symbol.
func (dl *DataLoader) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	meta := loaderMeta{
		Typ:        dl.Typ,
		Symbols:    dl.Symbols,
		Freq:       dl.Freq,
		Start:      dl.Start,
		End:        dl.End,
		Multiplier: dl.Multiplier,
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), raw, 0o644); err != nil {
		return err
	}

	bar := progressbar.Default(int64(dl.Len()), "saving frames")
	defer bar.Close()
	return dl.Each(func(symbol string, f *frame.Frame) error {
		df, err := f.DF()
		if err != nil {
			return err
		}
		file, err := os.Create(filepath.Join(dir, symbol+".csv"))
		if err != nil {
			return err
		}
		defer file.Close()
		if err := df.WriteCSV(file); err != nil {
			return err
		}
		return bar.Add(1)
	})
}

// Load reads a directory written by Save back into a loader.
func Load(dir string) (*DataLoader, error) {
	raw, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a saved loader: %v", core.ErrSchema, dir, err)
	}
	var meta loaderMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}

	dl := New(meta.Typ)
	dl.Symbols = meta.Symbols
	dl.Freq = meta.Freq
	dl.Start = meta.Start
	dl.End = meta.End
	dl.Multiplier = meta.Multiplier

	bar := progressbar.Default(int64(len(meta.Symbols)), "loading frames")
	defer bar.Close()
	dl.Dfs = make(frame.Frames, 0, len(meta.Symbols))
	for _, symbol := range meta.Symbols {
		file, err := os.Open(filepath.Join(dir, symbol+".csv"))
		if err != nil {
			return nil, err
		}
		df := dataframe.ReadCSV(file)
		file.Close()
		if df.Err != nil {
			return nil, df.Err
		}
		dl.Dfs = append(dl.Dfs, frame.New(df))
		if err := bar.Add(1); err != nil {
			return nil, err
		}
	}
	return dl, nil
}
