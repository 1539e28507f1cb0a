package ledger

import "time"

// Clock supplies the logical time attached to mint records and events.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

// Now calls f.
func (f ClockFunc) Now() int64 {
	return f()
}

// SystemClock reports wall-clock Unix milliseconds.
var SystemClock Clock = ClockFunc(func() int64 {
	return time.Now().UnixMilli()
})
