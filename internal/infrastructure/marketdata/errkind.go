package marketdata

import "errors"

// Failure kinds stored next to cached errors.
const (
	kindSymbolUnavailable = "symbol_unavailable"
	kindProviderTimeout   = "provider_timeout"
	kindInvalidRange      = "invalid_range"
)

var sentinelKinds = map[string]error{
	kindSymbolUnavailable: ErrSymbolUnavailable,
	kindProviderTimeout:   ErrProviderTimeout,
	kindInvalidRange:      ErrInvalidRange,
}

// ClassifyError names the sentinel err wraps, or "" for other failures.
func ClassifyError(err error) string {
	for kind, sentinel := range sentinelKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}

// RehydrateError rebuilds a cached failure so it still matches its sentinel
// with errors.Is. Unknown kinds return nil.
func RehydrateError(kind, msg string) error {
	sentinel, ok := sentinelKinds[kind]
	if !ok {
		return nil
	}
	return &cachedError{msg: msg, sentinel: sentinel}
}

type cachedError struct {
	msg      string
	sentinel error
}

func (e *cachedError) Error() string { return e.msg }
func (e *cachedError) Unwrap() error { return e.sentinel }
