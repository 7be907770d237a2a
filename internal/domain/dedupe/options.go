package dedupe

import "time"

// Option configures the in-memory deduper.
type Option func(*memoryDeduper)

// WithMaxSize bounds the number of remembered ids. Values <= 0 disable the
// bound.
func WithMaxSize(maxSize int) Option {
	return func(d *memoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithTTL forgets ids after ttl. Zero keeps them until evicted by size.
func WithTTL(ttl time.Duration) Option {
	return func(d *memoryDeduper) {
		d.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *memoryDeduper) {
		if now != nil {
			d.now = now
		}
	}
}
