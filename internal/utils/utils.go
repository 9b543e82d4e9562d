package utils

import (
	"context"
	"math/rand"
	"time"

	"github.com/reconquest/karma-go"
)

func Now() time.Time {
	return time.Now().UTC()
}

const symbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func RandString(n int) string {
	buffer := make([]byte, n)
	for i := range buffer {
		buffer[i] = symbols[rand.Intn(len(symbols))]
	}
	return string(buffer)
}

func IsDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func IsCanceled(err error) bool {
	return karma.Contains(err, context.Canceled)
}

type Ticker struct {
	timer    *time.Timer
	duration time.Duration
}

func NewTicker(duration time.Duration) *Ticker {
	return &Ticker{
		timer:    time.NewTimer(duration),
		duration: duration,
	}
}

func (ticker *Ticker) Get() <-chan time.Time {
	return ticker.timer.C
}

func (ticker *Ticker) Reset() {
	ticker.timer.Reset(ticker.duration)
}
