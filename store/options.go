package store

import "time"

type settings struct {
	fs          FileSystem
	lockFactory FileLockFactory
	now         func() time.Time
}

func newSettings(opts []Option) settings {
	s := settings{
		fs:          osFileSystem{},
		lockFactory: flockFactory{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option tunes a backend. File system and lock options only affect the JSON
// backend; WithTimeFunc applies to all of them.
type Option func(*settings)

// WithFileSystem sets a custom FileSystem implementation
func WithFileSystem(fs FileSystem) Option {
	return func(s *settings) {
		s.fs = fs
	}
}

// WithFileLockFactory sets a custom FileLockFactory implementation
func WithFileLockFactory(factory FileLockFactory) Option {
	return func(s *settings) {
		s.lockFactory = factory
	}
}

// WithTimeFunc sets the clock used for CreatedAt, mostly for tests
func WithTimeFunc(fn func() time.Time) Option {
	return func(s *settings) {
		s.now = fn
	}
}
