package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/angularhub/hub/internal/event_bus"
	"github.com/angularhub/hub/pkg/event"
	log "github.com/sirupsen/logrus"
)

var ErrUnknownLanguage = errors.New("language is not offered by the loaded events")

// StaleLanguagePolicy decides what happens to a selected language that no loaded
// event uses.
type StaleLanguagePolicy string

const (
	// KeepStaleLanguage leaves the selection in place; the list becomes empty.
	KeepStaleLanguage StaleLanguagePolicy = "keep"
	// ClearStaleLanguage drops the selection.
	ClearStaleLanguage StaleLanguagePolicy = "clear"
	// RejectStaleLanguage refuses to select it.
	RejectStaleLanguage StaleLanguagePolicy = "reject"
)

func ParseStaleLanguagePolicy(value string) (StaleLanguagePolicy, error) {
	switch p := StaleLanguagePolicy(value); p {
	case KeepStaleLanguage, ClearStaleLanguage, RejectStaleLanguage:
		return p, nil
	case "":
		return KeepStaleLanguage, nil
	default:
		return "", fmt.Errorf("unknown stale language policy %q", value)
	}
}

type Options struct {
	Location      *time.Location
	StaleLanguage StaleLanguagePolicy
}

// View is the state of one page view: the loaded events, the two filter cells
// and the two views derived from them. Dependencies are wired as bus
// subscriptions:
//
//	events loaded     -> languages, filtered events
//	date selected     -> filtered events
//	language selected -> filtered events
//
// A View belongs to a single caller and is not safe for concurrent use.
type View struct {
	bus      *event_bus.EventBus
	location *time.Location
	policy   StaleLanguagePolicy

	snapshot event.Snapshot

	selectedDate     *time.Time
	selectedLanguage *string

	languages      []string
	filteredEvents []event.Event
}

func NewView(snapshot event.Snapshot, opts Options) *View {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.StaleLanguage == "" {
		opts.StaleLanguage = KeepStaleLanguage
	}
	v := &View{
		bus:      event_bus.NewEventBus(),
		location: opts.Location,
		policy:   opts.StaleLanguage,
	}

	event_bus.SubscribeTyped(v.bus, event_bus.TopicEventsLoaded, func(event_bus.MessageT[event_bus.EventsLoaded]) error {
		v.recomputeLanguages()
		v.applyStaleLanguagePolicy()
		v.recomputeFilteredEvents()
		return nil
	})
	event_bus.SubscribeTyped(v.bus, event_bus.TopicDateSelected, func(event_bus.MessageT[event_bus.DateSelected]) error {
		v.recomputeFilteredEvents()
		return nil
	})
	event_bus.SubscribeTyped(v.bus, event_bus.TopicLanguageSelected, func(event_bus.MessageT[event_bus.LanguageSelected]) error {
		v.recomputeFilteredEvents()
		return nil
	})

	v.ReplaceEvents(snapshot)
	return v
}

// FilteredEvents returns the loaded events matching the current selection.
func (v *View) FilteredEvents() []event.Event {
	return slices.Clone(v.filteredEvents)
}

// Languages returns the distinct languages of all loaded events, regardless of the selection.
func (v *View) Languages() []string {
	return slices.Clone(v.languages)
}

func (v *View) SelectedDate() *time.Time {
	if v.selectedDate == nil {
		return nil
	}
	d := *v.selectedDate
	return &d
}

func (v *View) SelectedLanguage() *string {
	if v.selectedLanguage == nil {
		return nil
	}
	l := *v.selectedLanguage
	return &l
}

func (v *View) Snapshot() event.Snapshot {
	return v.snapshot
}

// SetSelectedDate replaces the date filter; nil clears it.
func (v *View) SetSelectedDate(date *time.Time) {
	if equalDates(v.selectedDate, date) {
		return
	}
	if date != nil {
		d := *date
		date = &d
	}
	v.selectedDate = date
	v.publish(event_bus.TopicDateSelected, event_bus.DateSelected{Date: date})
}

// SetSelectedLanguage replaces the language filter; nil clears it. With the
// reject policy an unknown language returns ErrUnknownLanguage and leaves the
// selection unchanged; with the clear policy it clears the selection.
func (v *View) SetSelectedLanguage(language *string) error {
	if language != nil && !v.offers(*language) {
		switch v.policy {
		case RejectStaleLanguage:
			return fmt.Errorf("%w: %q", ErrUnknownLanguage, *language)
		case ClearStaleLanguage:
			log.Debugf("Clearing unknown language selection %q", *language)
			language = nil
		}
	}
	if equalStrings(v.selectedLanguage, language) {
		return nil
	}
	if language != nil {
		l := *language
		language = &l
	}
	v.selectedLanguage = language
	v.publish(event_bus.TopicLanguageSelected, event_bus.LanguageSelected{Language: language})
	return nil
}

// ReplaceEvents swaps the loaded events; both derived views are recomputed.
func (v *View) ReplaceEvents(snapshot event.Snapshot) {
	v.snapshot = snapshot
	v.publish(event_bus.TopicEventsLoaded, event_bus.EventsLoaded{
		Source:     snapshot.Source,
		LoadedAt:   snapshot.LoadedAt,
		EventCount: len(snapshot.Events),
	})
}

func (v *View) publish(topic event_bus.Topic, payload any) {
	// subscribers never fail; an error here means a programming mistake
	if err := v.bus.Publish(event_bus.NewMessage(context.Background(), topic, payload)); err != nil {
		log.Errorf("failed to recompute listing after %s: %v", topic, err)
	}
}

func (v *View) recomputeLanguages() {
	v.languages = Languages(v.snapshot.Events)
}

func (v *View) recomputeFilteredEvents() {
	v.filteredEvents = FilterEvents(v.snapshot.Events, Filter{
		Date:     v.selectedDate,
		Language: v.selectedLanguage,
	}, v.location)
}

// applyStaleLanguagePolicy runs after the events changed. Reject cannot refuse
// a load, so it behaves like clear here.
func (v *View) applyStaleLanguagePolicy() {
	if v.selectedLanguage == nil || v.offers(*v.selectedLanguage) {
		return
	}
	switch v.policy {
	case ClearStaleLanguage, RejectStaleLanguage:
		log.Debugf("Clearing stale language selection %q", *v.selectedLanguage)
		v.selectedLanguage = nil
	default:
		log.Debugf("Keeping stale language selection %q", *v.selectedLanguage)
	}
}

func (v *View) offers(language string) bool {
	return slices.Contains(v.languages, language)
}

func equalDates(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func equalStrings(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
