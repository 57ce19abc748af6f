package main

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

var (
	_ Clocker       = (*Clock)(nil)
	_ zapcore.Clock = (*Clock)(nil)
)

// Clocker is the time source of handlers, services and the rate limiter.
type Clocker interface {
	Now() time.Time
}

// Clock reads the wall clock in a fixed location: UTC in production,
// the host timezone otherwise. It also drives the zap timestamps.
type Clock struct {
	loc *time.Location
}

func NewClock(isProd bool) *Clock {
	loc := time.Local
	if isProd {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *Clock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// uptime renders the whole minutes elapsed since started, like `42 mins`.
func uptime(clock Clocker, started time.Time) string {
	return fmt.Sprintf("%.0f mins", clock.Now().Sub(started).Minutes())
}
