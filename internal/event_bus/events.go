package event_bus

import "time"

const (
	TopicDateSelected     Topic = "filter.date_selected"
	TopicLanguageSelected Topic = "filter.language_selected"
	TopicEventsLoaded     Topic = "events.loaded"
)

// DateSelected carries the new date filter; nil means cleared.
type DateSelected struct {
	Date *time.Time
}

// LanguageSelected carries the new language filter; nil means cleared.
type LanguageSelected struct {
	Language *string
}

type EventsLoaded struct {
	Source     string
	LoadedAt   time.Time
	EventCount int
}
