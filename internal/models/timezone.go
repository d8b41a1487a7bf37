package models

import (
	"sync"
	"time"
)

var (
	marketTZOnce sync.Once
	marketTZ     *time.Location
)

// MarketLocation returns the trading-hours time zone (IST). Falls back to a
// fixed +05:30 zone when the tz database is unavailable.
func MarketLocation() *time.Location {
	marketTZOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Kolkata")
		if err != nil {
			loc = time.FixedZone("IST", 5*3600+1800)
		}
		marketTZ = loc
	})
	return marketTZ
}

// MarketDate formats a timestamp as the trading-day date string (YYYY-MM-DD in IST).
func MarketDate(t time.Time) string {
	return t.In(MarketLocation()).Format("2006-01-02")
}
