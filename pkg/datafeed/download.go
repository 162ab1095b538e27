package datafeed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/loader"
	"github.com/raykavin/factorlab/pkg/logger"
	"github.com/schollz/progressbar/v3"
	str2duration "github.com/xhit/go-str2duration/v2"
)

const batchSize = 500

// Downloader fetches historical klines for a set of symbols and assembles
// them into a loader ready for factor work.
type Downloader struct {
	feed Feeder
	log  logger.Logger
}

// NewDownloader creates a new downloader instance with the provided feed
func NewDownloader(feed Feeder) Downloader {
	return Downloader{feed: feed, log: logger.Default()}
}

// WithLogger replaces the downloader's logger.
func (d Downloader) WithLogger(log logger.Logger) Downloader {
	d.log = log
	return d
}

// Parameters defines the time range for data download
type Parameters struct {
	Start time.Time
	End   time.Time
}

// Option is a function type for configuring download parameters
type Option func(*Parameters)

// WithInterval sets specific start and end times for the download
func WithInterval(start, end time.Time) Option {
	return func(parameters *Parameters) {
		parameters.Start = start
		parameters.End = end
	}
}

// WithDays sets the download period to a specific number of days from now
func WithDays(days int) Option {
	return func(parameters *Parameters) {
		parameters.Start = time.Now().AddDate(0, 0, -days)
		parameters.End = time.Now()
	}
}

// Download fetches klines for every symbol and returns a loader keyed by
// symbol, with time, OHLCV and trading_date columns per frame.
func (d Downloader) Download(ctx context.Context, symbols []string, interval string,
	options ...Option) (*loader.DataLoader, error) {

	parameters := defaultParameters()
	for _, option := range options {
		option(parameters)
	}
	normalizeTimeParameters(parameters)

	step, err := str2duration.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("%w: bad interval %q: %v", core.ErrParse, interval, err)
	}
	total := int64(parameters.End.Sub(parameters.Start)/step) * int64(len(symbols))
	d.log.Infof("downloading %s klines for %d symbols", interval, len(symbols))

	bar := progressbar.Default(total, "downloading")
	defer bar.Close()

	frames := make(frame.Frames, 0, len(symbols))
	for _, symbol := range symbols {
		klines, err := d.downloadSymbol(ctx, symbol, interval, step, parameters, bar)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", symbol, err)
		}
		frames = append(frames, klinesFrame(klines))
	}

	dl, err := loader.NewFromSymbolDfs("coin", symbols, frames)
	if err != nil {
		return nil, err
	}
	dl.Freq = interval
	dl.Start = parameters.Start.UnixMilli()
	dl.End = parameters.End.UnixMilli()
	return dl, nil
}

func (d Downloader) downloadSymbol(ctx context.Context, symbol, interval string,
	step time.Duration, parameters *Parameters, bar *progressbar.ProgressBar) ([]Kline, error) {

	var klines []Kline
	missing := 0
	for batchStart := parameters.Start; batchStart.Before(parameters.End); batchStart = batchStart.Add(step * batchSize) {
		batchEnd := batchStart.Add(step*batchSize - time.Second)
		isLastBatch := false
		if !batchEnd.Before(parameters.End) {
			batchEnd = parameters.End
			isLastBatch = true
		}

		batch, err := d.feed.KlinesByPeriod(ctx, symbol, interval, batchStart, batchEnd)
		if err != nil {
			return nil, err
		}
		klines = append(klines, batch...)

		if !isLastBatch && len(batch) < batchSize {
			missing += batchSize - len(batch)
		}
		if err := bar.Add(len(batch)); err != nil {
			d.log.Warnf("failed to update progress bar: %s", err.Error())
		}
	}
	if missing > 0 {
		d.log.Warnf("%s: %d missing klines", symbol, missing)
	}
	return klines, nil
}

// klinesFrame builds a per-symbol frame in the long layout the loader
// expects.
func klinesFrame(klines []Kline) *frame.Frame {
	n := len(klines)
	times := make([]float64, n)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	dates := make([]float64, n)
	for i, k := range klines {
		times[i] = float64(k.Time)
		opens[i] = k.Open
		highs[i] = k.High
		lows[i] = k.Low
		closes[i] = k.Close
		volumes[i] = k.Volume
		dates[i] = tradingDate(k.Time)
	}
	return frame.New(dataframe.New(
		series.New(times, series.Float, "time"),
		series.New(opens, series.Float, "open"),
		series.New(highs, series.Float, "high"),
		series.New(lows, series.Float, "low"),
		series.New(closes, series.Float, "close"),
		series.New(volumes, series.Float, "volume"),
		series.New(dates, series.Float, "trading_date"),
	))
}

// tradingDate formats an epoch-millisecond timestamp as a yyyymmdd number in
// UTC.
func tradingDate(ms int64) float64 {
	t := time.UnixMilli(ms).UTC()
	return float64(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// defaultParameters covers the last month
func defaultParameters() *Parameters {
	now := time.Now()
	return &Parameters{
		Start: now.AddDate(0, -1, 0),
		End:   now,
	}
}

// normalizeTimeParameters adjusts time parameters to day boundaries
func normalizeTimeParameters(parameters *Parameters) {
	parameters.Start = time.Date(
		parameters.Start.Year(),
		parameters.Start.Month(),
		parameters.Start.Day(),
		0, 0, 0, 0, time.UTC,
	)

	now := time.Now()
	if now.Sub(parameters.End) > 0 {
		parameters.End = time.Date(
			parameters.End.Year(),
			parameters.End.Month(),
			parameters.End.Day(),
			0, 0, 0, 0, time.UTC,
		)
	} else {
		parameters.End = now
	}
}
