package listing

import (
	"time"

	"github.com/angularhub/hub/pkg/event"
)

// Filter is the visitor's selection. A nil field does not constrain the result.
type Filter struct {
	Date     *time.Time
	Language *string
}

// FilterEvents returns the events matching f, in their original order.
// Dates are compared by calendar day in loc, ignoring the time of day.
// Language matching is exact and case-sensitive.
func FilterEvents(events []event.Event, f Filter, loc *time.Location) []event.Event {
	if loc == nil {
		loc = time.UTC
	}
	result := make([]event.Event, 0, len(events))
	for _, e := range events {
		if f.Date != nil && !sameDay(e.Date, *f.Date, loc) {
			continue
		}
		if f.Language != nil && e.Language != *f.Language {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Languages returns each distinct language once, in order of first occurrence.
func Languages(events []event.Event) []string {
	seen := make(map[string]struct{}, len(events))
	languages := make([]string, 0)
	for _, e := range events {
		if _, ok := seen[e.Language]; ok {
			continue
		}
		seen[e.Language] = struct{}{}
		languages = append(languages, e.Language)
	}
	return languages
}

// sameDay reports whether a and b fall on the same calendar day in loc.
func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
