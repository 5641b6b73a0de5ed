package event

import (
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	Conference Type = "conference"
	Meetup     Type = "meetup"
	Workshop   Type = "workshop"
	Other      Type = "other"
)

// Event is a single listed community occurrence. Name is the identity of an
// event within one loaded set.
type Event struct {
	Name             string
	Date             time.Time
	Language         string
	Type             Type
	Location         string
	URL              string
	Logo             string
	CallForPapersURL string
	IsFree           bool
	IsRemote         bool
}

// Record is the wire form of an Event used by event files and the JSON API.
type Record struct {
	Name          string `json:"name" yaml:"name"`
	Date          string `json:"date" yaml:"date"`
	Language      string `json:"language" yaml:"language"`
	Type          string `json:"type,omitempty" yaml:"type,omitempty"`
	Location      string `json:"location,omitempty" yaml:"location,omitempty"`
	URL           string `json:"url,omitempty" yaml:"url,omitempty"`
	Logo          string `json:"logo,omitempty" yaml:"logo,omitempty"`
	CallForPapers string `json:"callForPapers,omitempty" yaml:"callForPapers,omitempty"`
	IsFree        bool   `json:"isFree" yaml:"isFree"`
	IsRemote      bool   `json:"isRemote" yaml:"isRemote"`
}

// ParseDate accepts a plain calendar date (interpreted in loc) or an RFC3339 timestamp.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", value)
	}
	return t, nil
}

func ParseType(value string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(value))) {
	case Conference:
		return Conference
	case Meetup:
		return Meetup
	case Workshop:
		return Workshop
	default:
		return Other
	}
}

func FromRecord(r Record, loc *time.Location) (Event, error) {
	if r.Name == "" {
		return Event{}, fmt.Errorf("event without name")
	}
	date, err := ParseDate(r.Date, loc)
	if err != nil {
		return Event{}, fmt.Errorf("event %q: %w", r.Name, err)
	}
	return Event{
		Name:             r.Name,
		Date:             date,
		Language:         r.Language,
		Type:             ParseType(r.Type),
		Location:         r.Location,
		URL:              r.URL,
		Logo:             r.Logo,
		CallForPapersURL: r.CallForPapers,
		IsFree:           r.IsFree,
		IsRemote:         r.IsRemote,
	}, nil
}

func ToRecord(e Event) Record {
	return Record{
		Name:          e.Name,
		Date:          e.Date.Format(time.RFC3339),
		Language:      e.Language,
		Type:          string(e.Type),
		Location:      e.Location,
		URL:           e.URL,
		Logo:          e.Logo,
		CallForPapers: e.CallForPapersURL,
		IsFree:        e.IsFree,
		IsRemote:      e.IsRemote,
	}
}

// ValidateNames reports the first name used by more than one event.
func ValidateNames(events []Event) error {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if _, ok := seen[e.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}
