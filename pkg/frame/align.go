package frame

import (
	"fmt"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/samber/lo"
)

// Align reshapes every frame onto the union of key values: the frames are
// folded with full outer joins on the keys, sorted by the keys, and each
// frame is then re-projected onto its original schema. Rows a frame never
// had come back null.
func Align(fs Frames, keys ...string) (Frames, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: align needs at least one key", core.ErrShape)
	}
	if len(fs) < 2 {
		return fs, fs.Err()
	}
	schemas := make([][]string, len(fs))
	for i, f := range fs {
		s, err := f.Schema()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if !lo.Contains(s, k) {
				return nil, fmt.Errorf("%w: frame %d is missing key %q", core.ErrSchema, i, k)
			}
		}
		schemas[i] = s
	}

	// Duplicate non-key names across frames would collide inside the joined
	// union, so each frame's payload columns get a positional suffix first.
	renamed := make(Frames, len(fs))
	backmaps := make([]map[string]string, len(fs))
	for i, f := range fs {
		fwd := map[string]string{}
		back := map[string]string{}
		for _, n := range schemas[i] {
			if lo.Contains(keys, n) {
				continue
			}
			tagged := fmt.Sprintf("%s:%d", n, i)
			fwd[n] = tagged
			back[tagged] = n
		}
		renamed[i] = f.Rename(fwd)
		backmaps[i] = back
	}

	union := renamed[0]
	for _, f := range renamed[1:] {
		union = union.Join(f, keys, JoinOuter)
	}
	union = union.Sort(keys...).Collect()
	if union.Err() != nil {
		return nil, union.Err()
	}

	out := make(Frames, len(fs))
	for i := range fs {
		f := union
		back := backmaps[i]
		tagged := make([]string, 0, len(schemas[i]))
		fwd := map[string]string{}
		for _, n := range schemas[i] {
			if lo.Contains(keys, n) {
				tagged = append(tagged, n)
				continue
			}
			t := fmt.Sprintf("%s:%d", n, i)
			tagged = append(tagged, t)
			fwd[t] = back[t]
		}
		f = f.SelectNames(tagged...).Rename(fwd).Collect()
		if f.Err() != nil {
			return nil, f.Err()
		}
		out[i] = f
	}
	return out, nil
}
