package clock

import (
	"fmt"
	"time"
)

// Layout is the timestamp form used everywhere in Herald: ISO-8601
// UTC with millisecond precision and a literal Z suffix.
const Layout = "2006-01-02T15:04:05.000Z"

// Sentinel is substituted for absent upstream timestamps. An event
// carrying it is non-strictly in the past and expires on the next
// sweep.
var Sentinel = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Relation names how instant b relates to instant a.
type Relation int

const (
	Equal Relation = iota
	Future
	Past
)

func (r Relation) String() string {
	switch r {
	case Future:
		return "future"
	case Past:
		return "past"
	default:
		return "equal"
	}
}

// Clock abstracts the time source so the engine can be driven by a
// fake clock in tests.
type Clock interface {
	Now() time.Time
}

// UTC is the production clock. Instants are truncated to millisecond
// precision so that Format/Parse round-trip exactly.
type UTC struct{}

func (UTC) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Format renders an instant in the engine's canonical layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse reads a timestamp in RFC3339 form. Timestamps without an
// explicit zone are rejected; everything is normalized to UTC and
// truncated to millisecond precision.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

// Compare classifies b relative to a: Future when a precedes b, Past
// when a follows b, Equal otherwise.
func Compare(a, b time.Time) Relation {
	switch {
	case a.Equal(b):
		return Equal
	case a.Before(b):
		return Future
	default:
		return Past
	}
}
