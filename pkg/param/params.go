package param

import "strings"

// Params is an ordered tuple of params, as written inside strategy and
// factor names: "(20,2)", "[100, ,1.5]" or a single bare token.
type Params []Param

// ParseParams splits a params token and parses each element. Surrounding
// round or square brackets are optional; a bare token yields one param.
func ParseParams(s string) Params {
	t := strings.TrimSpace(s)
	if len(t) >= 2 {
		if (t[0] == '(' && t[len(t)-1] == ')') || (t[0] == '[' && t[len(t)-1] == ']') {
			t = t[1 : len(t)-1]
		}
	}
	if strings.TrimSpace(t) == "" {
		return Params{}
	}
	parts := strings.Split(t, ",")
	// A trailing comma, as in "(100,)", does not add an element.
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	out := make(Params, 0, len(parts))
	for _, p := range parts {
		out = append(out, Parse(p))
	}
	return out
}

// Get returns the i-th param, or None when out of range.
func (ps Params) Get(i int) Param {
	if i < 0 || i >= len(ps) {
		return Param{}
	}
	return ps[i]
}

// Len returns the number of params in the tuple.
func (ps Params) Len() int { return len(ps) }

// String renders the tuple as "(a, b)"; a single param renders bare and an
// empty tuple renders as "".
func (ps Params) String() string {
	switch len(ps) {
	case 0:
		return ""
	case 1:
		return ps[0].String()
	}
	elems := make([]string, len(ps))
	for i, p := range ps {
		elems[i] = p.String()
	}
	return "(" + strings.Join(elems, ", ") + ")"
}
