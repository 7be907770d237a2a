package schedule

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConductorsFirst fills every day's conductor before assigning any
// backup, so conductor slots win when the pool runs short.
func WithConductorsFirst() Option {
	return func(s *Scheduler) {
		s.conductorsFirst = true
	}
}

// WithDays overrides the window length. Non-positive values are ignored.
func WithDays(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.days = n
		}
	}
}
