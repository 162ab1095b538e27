package datafeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeed serves one kline per interval step inside the requested range.
type fakeFeed struct {
	step time.Duration
}

func (f fakeFeed) KlinesByPeriod(_ context.Context, _, _ string, start, end time.Time) ([]Kline, error) {
	var klines []Kline
	for t := start; !t.After(end); t = t.Add(f.step) {
		ms := t.UnixMilli()
		klines = append(klines, Kline{
			Time:   ms,
			Open:   1,
			High:   2,
			Low:    0.5,
			Close:  1.5,
			Volume: 10,
		})
	}
	return klines, nil
}

func TestDownloadBuildsLoader(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	d := NewDownloader(fakeFeed{step: time.Hour})
	dl, err := d.Download(context.Background(), []string{"BTCUSDT", "ETHUSDT"}, "1h",
		WithInterval(start, end))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, dl.Symbols)
	assert.Equal(t, "1h", dl.Freq)
	assert.Equal(t, start.UnixMilli(), dl.Start)

	f, err := dl.FrameBySymbol("BTCUSDT")
	require.NoError(t, err)
	for _, col := range []string{"time", "open", "high", "low", "close", "volume", "trading_date"} {
		assert.True(t, f.HasColumn(col), col)
	}

	dates, err := f.Floats("trading_date")
	require.NoError(t, err)
	assert.Equal(t, 20240301.0, dates[0])
}

func TestTradingDate(t *testing.T) {
	ms := time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, 20231231.0, tradingDate(ms))
}
