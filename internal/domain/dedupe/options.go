package dedupe

// Option configures a Set.
type Option func(*Set)

// WithMaxSize bounds the number of remembered keys. n <= 0 means unbounded.
func WithMaxSize(n int) Option {
	return func(s *Set) { s.maxSize = n }
}
