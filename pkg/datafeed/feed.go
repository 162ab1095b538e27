// Package datafeed pulls historical kline data from exchanges into loaders.
package datafeed

import (
	"context"
	"time"
)

// Kline is one completed bar in epoch-millisecond time.
type Kline struct {
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Feeder serves historical klines for a symbol.
type Feeder interface {
	// KlinesByPeriod returns the completed klines between start and end
	KlinesByPeriod(ctx context.Context, symbol, interval string, start, end time.Time) ([]Kline, error)
}
