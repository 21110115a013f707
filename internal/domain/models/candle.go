package models

import (
	"fmt"
	"time"
)

// Candle is a closed OHLCV bar. Fetchers and the aggregator only emit bars
// whose interval has fully elapsed; the engine never sees a forming candle.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Validate checks the OHLC ordering invariant:
// low <= min(open, close) <= max(open, close) <= high, volume >= 0.
func (c Candle) Validate() error {
	body := c.Open
	if c.Close < body {
		body = c.Close
	}
	top := c.Open
	if c.Close > top {
		top = c.Close
	}
	if c.Low > body {
		return fmt.Errorf("candle %s: low %v above body %v", c.OpenTime.UTC().Format(time.RFC3339), c.Low, body)
	}
	if c.High < top {
		return fmt.Errorf("candle %s: high %v below body %v", c.OpenTime.UTC().Format(time.RFC3339), c.High, top)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %s: negative volume %v", c.OpenTime.UTC().Format(time.RFC3339), c.Volume)
	}
	return nil
}
