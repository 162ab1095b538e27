package param_test

import (
	"testing"

	"github.com/raykavin/factorlab/pkg/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalar(t *testing.T) {
	assert.Equal(t, param.I32, param.Parse("100").Kind())
	assert.Equal(t, int32(100), param.Parse("100").AsI32())

	assert.Equal(t, param.F64, param.Parse("1.5").Kind())
	assert.Equal(t, 1.5, param.Parse("1.5").AsF64())

	assert.Equal(t, param.None, param.Parse("").Kind())
	assert.Equal(t, param.None, param.Parse("none").Kind())

	assert.Equal(t, param.Str, param.Parse("daily").Kind())
	assert.Equal(t, "daily", param.Parse("daily").AsStr())
}

func TestNoneDefaults(t *testing.T) {
	none := param.NewNone()
	assert.Equal(t, int32(1), none.AsI32())
	assert.Equal(t, 1.0, none.AsF64())
	assert.Equal(t, "", none.String())
}

func TestParseParams(t *testing.T) {
	ps := param.ParseParams("(100,)")
	require.Equal(t, 1, ps.Len())
	assert.Equal(t, int32(100), ps.Get(0).AsI32())

	ps = param.ParseParams("[100, ,1.5]")
	require.Equal(t, 3, ps.Len())
	assert.Equal(t, param.I32, ps.Get(0).Kind())
	assert.Equal(t, param.None, ps.Get(1).Kind())
	assert.Equal(t, param.F64, ps.Get(2).Kind())

	ps = param.ParseParams("20")
	require.Equal(t, 1, ps.Len())
	assert.Equal(t, int32(20), ps.Get(0).AsI32())
}

func TestFloatParamRoundTrip(t *testing.T) {
	// whole floats keep their ".0" so the rendered name re-parses as F64
	assert.Equal(t, "2.0", param.NewF64(2).String())
	assert.Equal(t, "2.5", param.NewF64(2.5).String())
	p := param.Parse(param.NewF64(2).String())
	assert.Equal(t, param.F64, p.Kind())
}

func TestParamsString(t *testing.T) {
	assert.Equal(t, "", param.Params{}.String())
	assert.Equal(t, "20", param.ParseParams("20").String())
	assert.Equal(t, "(20, 2)", param.ParseParams("(20,2)").String())
	// Out-of-range access falls back to None.
	assert.True(t, param.ParseParams("20").Get(5).IsNone())
}
