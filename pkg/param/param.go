package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the payload carried by a Param.
type Kind int

const (
	None Kind = iota
	Bool
	I32
	F64
	Str
)

// Param is a small tagged union used to parameterize factors and strategies.
// The zero value is the None param.
type Param struct {
	kind Kind
	b    bool
	i    int32
	f    float64
	s    string
}

// NewNone returns the absent param.
func NewNone() Param { return Param{} }

// NewBool returns a boolean param.
func NewBool(v bool) Param { return Param{kind: Bool, b: v} }

// NewI32 returns an integer param.
func NewI32(v int32) Param { return Param{kind: I32, i: v} }

// NewF64 returns a float param.
func NewF64(v float64) Param { return Param{kind: F64, f: v} }

// NewStr returns a string param.
func NewStr(v string) Param { return Param{kind: Str, s: v} }

// Parse converts a textual token into a Param. It never fails: integers win
// over floats, the empty string and "none" map to None, anything else is a
// string param.
func Parse(s string) Param {
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 32); err == nil {
		return NewI32(int32(i))
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return NewF64(f)
	}
	if t == "" || strings.EqualFold(t, "none") {
		return NewNone()
	}
	return NewStr(t)
}

// Kind returns the param's kind tag.
func (p Param) Kind() Kind { return p.kind }

// IsNone reports whether the param is absent.
func (p Param) IsNone() bool { return p.kind == None }

// AsBool returns the boolean payload. Non-bool params report false.
func (p Param) AsBool() bool {
	return p.kind == Bool && p.b
}

// AsI32 returns the param as an int32. None maps to 1 so that window-style
// params default to the identity window; floats truncate.
func (p Param) AsI32() int32 {
	switch p.kind {
	case I32:
		return p.i
	case F64:
		return int32(p.f)
	case None:
		return 1
	default:
		return 0
	}
}

// AsI64 returns the param as an int64, with the same conventions as AsI32.
func (p Param) AsI64() int64 { return int64(p.AsI32()) }

// AsInt returns the param as an int, with the same conventions as AsI32.
func (p Param) AsInt() int { return int(p.AsI32()) }

// AsF64 returns the param as a float64. None maps to 1.
func (p Param) AsF64() float64 {
	switch p.kind {
	case F64:
		return p.f
	case I32:
		return float64(p.i)
	case None:
		return 1
	default:
		return 0
	}
}

// AsStr returns the string payload, or "" for non-string params.
func (p Param) AsStr() string {
	if p.kind == Str {
		return p.s
	}
	return ""
}

// String renders the param the way it appears inside factor names: numbers
// bare, None empty, strings raw.
func (p Param) String() string {
	switch p.kind {
	case Bool:
		return strconv.FormatBool(p.b)
	case I32:
		return strconv.FormatInt(int64(p.i), 10)
	case F64:
		s := strconv.FormatFloat(p.f, 'g', -1, 64)
		// integral floats keep a ".0" so the rendered name re-parses
		// as a float rather than an int
		if !math.IsInf(p.f, 0) && !math.IsNaN(p.f) && !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case Str:
		return p.s
	default:
		return ""
	}
}

// GoString is the debug form, tagging the kind.
func (p Param) GoString() string {
	if p.kind == None {
		return "param.None"
	}
	return fmt.Sprintf("param.%s(%s)", [...]string{"None", "Bool", "I32", "F64", "Str"}[p.kind], p.String())
}
