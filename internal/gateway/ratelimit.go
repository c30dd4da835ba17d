package gateway

import "golang.org/x/time/rate"

// RateLimiterFactory builds a fresh per-connection limiter at the
// configured rate, so every producer connection gets its own bucket
// (spec §4.1: "per-connection rate cap").
type RateLimiterFactory struct {
	perSecond int
}

func NewRateLimiterFactory(perSecond int) *RateLimiterFactory {
	if perSecond <= 0 {
		perSecond = 100
	}
	return &RateLimiterFactory{perSecond: perSecond}
}

func (f *RateLimiterFactory) New() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(f.perSecond), f.perSecond)
}
