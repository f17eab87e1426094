package chrono

import "time"

// API is the clock used by anything that needs "now", so tests can pin it.
type API interface {
	Now() time.Time
	Location() *time.Location
}

type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl uses the machine's local timezone, which is also what the
// dashboard date filters are meant to be read in.
func NewStandardImpl() StandardImpl {
	return StandardImpl{location: time.Local}
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant.
type FixedImpl struct {
	Time time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Time
}

func (f FixedImpl) Location() *time.Location {
	return f.Time.Location()
}
