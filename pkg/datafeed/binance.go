package datafeed

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"
)

const maxRetries = 5

// BinanceFeed serves spot klines from the Binance REST API.
type BinanceFeed struct {
	client *binance.Client
}

// NewBinanceFeed creates a feed. Public kline endpoints need no credentials.
func NewBinanceFeed(apiKey, secretKey string) *BinanceFeed {
	return &BinanceFeed{client: binance.NewClient(apiKey, secretKey)}
}

// setupBackoffRetry creates a backoff with sensible defaults
func setupBackoffRetry() *backoff.Backoff {
	return &backoff.Backoff{
		Min: 100 * time.Millisecond,
		Max: 1 * time.Second,
	}
}

// KlinesByPeriod gets klines for a symbol within a time range, retrying
// transient API failures.
func (b *BinanceFeed) KlinesByPeriod(ctx context.Context, symbol, interval string,
	start, end time.Time) ([]Kline, error) {

	retry := setupBackoffRetry()

	var data []*binance.Kline
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		data, err = b.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(start.UnixNano() / int64(time.Millisecond)).
			EndTime(end.UnixNano() / int64(time.Millisecond)).
			Do(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry.Duration()):
		}
	}
	if err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(data))
	for _, d := range data {
		klines = append(klines, convertKline(*d))
	}
	return klines, nil
}

func convertKline(k binance.Kline) Kline {
	out := Kline{Time: k.OpenTime}
	out.Open, _ = strconv.ParseFloat(k.Open, 64)
	out.High, _ = strconv.ParseFloat(k.High, 64)
	out.Low, _ = strconv.ParseFloat(k.Low, 64)
	out.Close, _ = strconv.ParseFloat(k.Close, 64)
	out.Volume, _ = strconv.ParseFloat(k.Volume, 64)
	return out
}
