package quotecache

import (
	"net/url"
	"strings"
	"time"
)

// Key identifies one cached lookup. Op names the provider operation
// (quote, profile, history), Params carries operation arguments such as a range.
type Key struct {
	Op     string
	Symbol string
	Params string
}

// String renders the key for external stores. Each part is query-escaped so a
// ':' inside a parameter can never collide with the separator.
func (k Key) String() string {
	k = k.normalized()
	return "quote:" + url.QueryEscape(k.Op) + ":" + url.QueryEscape(k.Symbol) + ":" + url.QueryEscape(k.Params)
}

// normalized upper-cases and trims the symbol so every store agrees on identity.
func (k Key) normalized() Key {
	k.Symbol = strings.ToUpper(strings.TrimSpace(k.Symbol))
	return k
}

// Clock is the time source used to age entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
