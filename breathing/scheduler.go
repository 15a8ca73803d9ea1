package breathing

import (
	"sync"
	"time"
)

// Cancel stops a scheduled task. It is safe to call more than once.
type Cancel func()

// Scheduler runs fn every d until the returned Cancel is called.
type Scheduler interface {
	Every(d time.Duration, fn func()) Cancel
}

// TickerScheduler schedules on a time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(d time.Duration, fn func()) Cancel {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
