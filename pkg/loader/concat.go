package loader

import (
	"fmt"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
)

// Concat stacks every symbol's frame vertically into one frame, tagging rows
// with a symbol column. Schemas must match across symbols.
func (dl *DataLoader) Concat() (*frame.Frame, error) {
	if dl.IsEmpty() {
		return nil, fmt.Errorf("%w: concat over an empty loader", core.ErrShape)
	}
	var out *frame.Frame
	for i, f := range dl.Dfs {
		tagged := f.WithColumn(frame.LitStr(dl.Symbols[i]).Alias("symbol"))
		if tagged.Err() != nil {
			return nil, tagged.Err()
		}
		if out == nil {
			out = tagged
		} else {
			out = out.VStack(tagged)
			if out.Err() != nil {
				return nil, out.Err()
			}
		}
	}
	return out, nil
}

// Merge appends another loader's symbols and frames; metadata stays with the
// receiver. Duplicate symbols error.
func (dl *DataLoader) Merge(other *DataLoader) (*DataLoader, error) {
	seen := map[string]bool{}
	for _, s := range dl.Symbols {
		seen[s] = true
	}
	out := dl.CopyWithDfs(append(frame.Frames{}, dl.Dfs...))
	out.Symbols = append([]string{}, dl.Symbols...)
	for i, s := range other.Symbols {
		if seen[s] {
			return nil, fmt.Errorf("%w: symbol %q present in both loaders", core.ErrShape, s)
		}
		out.Symbols = append(out.Symbols, s)
		out.Dfs = append(out.Dfs, other.Dfs[i])
	}
	return out, nil
}

// Align reshapes every frame onto the union of the key columns' values, so
// cross-symbol row positions line up.
func (dl *DataLoader) Align(keys ...string) (*DataLoader, error) {
	aligned, err := frame.Align(dl.Dfs, keys...)
	if err != nil {
		return nil, err
	}
	return dl.CopyWithDfs(aligned), nil
}
