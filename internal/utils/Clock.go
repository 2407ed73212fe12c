package utils

import "time"

// Clock abstracts "now" so deadline checks and timestamps can run against a
// frozen time in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock used outside of tests.
type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock returns FixedNow until SetNow moves it, letting tests step past a
// vote deadline without sleeping.
type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}
