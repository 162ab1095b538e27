package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(name string, facs []string) *RunRecord {
	return &RunRecord{
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Facs:      facs,
		Labels:    []string{"ret_1"},
		Tables:    map[string]string{"ic": "fac,ret_1\nf,0.05\n"},
	}
}

func TestBuntRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := NewFromMemory()
	require.NoError(t, err)

	run := sampleRun("momentum", []string{"close_bias_10"})
	require.NoError(t, st.CreateRun(ctx, run))
	assert.NotZero(t, run.ID)

	got, err := st.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "momentum", got[0].Name)
	assert.Equal(t, []string{"close_bias_10"}, got[0].Facs)
	assert.Equal(t, run.Tables["ic"], got[0].Tables["ic"])
}

func TestBuntUpdate(t *testing.T) {
	ctx := context.Background()
	st, err := NewFromMemory()
	require.NoError(t, err)

	run := sampleRun("momentum", []string{"close_bias_10"})
	require.NoError(t, st.CreateRun(ctx, run))

	run.Name = "momentum-v2"
	require.NoError(t, st.UpdateRun(ctx, run))

	got, err := st.Runs(ctx, WithName("momentum-v2"))
	require.NoError(t, err)
	require.Len(t, got, 1)

	missing := sampleRun("ghost", nil)
	missing.ID = 99
	assert.Error(t, st.UpdateRun(ctx, missing))
}

func TestRunFilters(t *testing.T) {
	ctx := context.Background()
	st, err := NewFromMemory()
	require.NoError(t, err)

	require.NoError(t, st.CreateRun(ctx, sampleRun("alpha", []string{"ma_5"})))
	require.NoError(t, st.CreateRun(ctx, sampleRun("alpha-long", []string{"ma_20"})))
	require.NoError(t, st.CreateRun(ctx, sampleRun("beta", []string{"ma_5"})))

	got, err := st.Runs(ctx, WithNamePrefix("alpha"))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = st.Runs(ctx, WithFac("ma_5"))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = st.Runs(ctx, WithNamePrefix("alpha"), WithFac("ma_5"))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = st.Runs(ctx, WithCreatedAfter(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Empty(t, got)
}
