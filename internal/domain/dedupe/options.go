package dedupe

type settings struct {
	maxSize int
}

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*settings)

// WithMaxSize sets the maximum number of keys to keep in memory.
// If maxSize > 0: bounded mode, oldest key evicted first.
// If maxSize <= 0: unbounded mode.
func WithMaxSize(maxSize int) Option {
	return func(s *settings) {
		s.maxSize = maxSize
	}
}
