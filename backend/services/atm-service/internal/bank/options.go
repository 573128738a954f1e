package bank

import "time"

const defaultTransactionLimit = 50

// Option tunes a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for account and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
