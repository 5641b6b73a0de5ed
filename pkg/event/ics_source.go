package event

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/angularhub/hub/internal/utils"
	ical "github.com/arran4/golang-ical"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

// Custom VEVENT properties carrying event metadata.
const (
	PropertyLanguage  ical.ComponentProperty = "X-HUB-LANGUAGE"
	PropertyEventType ical.ComponentProperty = "X-HUB-TYPE"
	PropertyLogo      ical.ComponentProperty = "X-HUB-LOGO"
	PropertyCFP       ical.ComponentProperty = "X-HUB-CFP"
	PropertyFree      ical.ComponentProperty = "X-HUB-FREE"
	PropertyRemote    ical.ComponentProperty = "X-HUB-REMOTE"
)

const maxOccurrencesPerEvent = 500

// ICSSource loads events from an iCalendar feed, either an http(s) URL or a local file.
// Recurring events are expanded from now until HorizonDays ahead; each occurrence
// gets its date appended to the name so names stay unique.
type ICSSource struct {
	location        string
	defaultLanguage string
	horizon         time.Duration
	displayLocation *time.Location
	client          *http.Client
	clock           utils.Clock
}

type ICSOptions struct {
	DefaultLanguage string
	HorizonDays     int
	Location        *time.Location
	Client          *http.Client
	Clock           utils.Clock
}

func NewICSSource(location string, opts ICSOptions) *ICSSource {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 365
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{}
	}
	return &ICSSource{
		location:        location,
		defaultLanguage: opts.DefaultLanguage,
		horizon:         time.Duration(opts.HorizonDays) * 24 * time.Hour,
		displayLocation: opts.Location,
		client:          opts.Client,
		clock:           opts.Clock,
	}
}

func (s *ICSSource) Name() string {
	return "ics:" + s.location
}

func (s *ICSSource) Load(ctx context.Context) ([]Event, error) {
	body, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return s.parse(body)
}

func (s *ICSSource) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(s.location, "http://") && !strings.HasPrefix(s.location, "https://") {
		data, err := os.ReadFile(s.location)
		if err != nil {
			return nil, fmt.Errorf("could not read ics file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")

	log.Debugf("Fetching ics feed %s", s.location)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch ics feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch ics feed: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *ICSSource) parse(body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ics body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not parse ics feed: %w", err)
	}

	now := s.clock.Now()
	until := now.Add(s.horizon)

	events := make([]Event, 0)
	seen := make(map[string]struct{})
	for _, ve := range cal.Events() {
		base, rule, err := s.parseVEvent(ve)
		if err != nil {
			log.Warnf("Skipping ics event: %v", err)
			continue
		}

		if rule == "" {
			events = appendUnique(events, seen, base)
			continue
		}

		for _, occ := range expandRule(base, rule, now, until) {
			events = appendUnique(events, seen, occ)
		}
	}

	log.Debugf("Parsed %d events from %s", len(events), s.location)
	return events, nil
}

func (s *ICSSource) parseVEvent(ve *ical.VEvent) (Event, string, error) {
	summary := propertyValue(ve, ical.ComponentPropertySummary)
	if summary == "" {
		return Event{}, "", errors.New("missing SUMMARY")
	}

	start, err := startOf(ve, s.displayLocation)
	if err != nil {
		return Event{}, "", fmt.Errorf("event %q: %w", summary, err)
	}

	language := propertyValue(ve, PropertyLanguage)
	if language == "" {
		language = s.defaultLanguage
	}

	e := Event{
		Name:             summary,
		Date:             start.In(s.displayLocation),
		Language:         language,
		Type:             ParseType(propertyValue(ve, PropertyEventType)),
		Location:         propertyValue(ve, ical.ComponentPropertyLocation),
		URL:              propertyValue(ve, ical.ComponentPropertyUrl),
		Logo:             propertyValue(ve, PropertyLogo),
		CallForPapersURL: propertyValue(ve, PropertyCFP),
		IsFree:           isTrue(propertyValue(ve, PropertyFree)),
		IsRemote:         isTrue(propertyValue(ve, PropertyRemote)),
	}
	return e, propertyValue(ve, ical.ComponentPropertyRrule), nil
}

// startOf returns DTSTART; all-day events start at midnight in loc.
func startOf(ve *ical.VEvent, loc *time.Location) (time.Time, error) {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return time.Time{}, errors.New("missing DTSTART")
	}
	allDay := !strings.Contains(prop.Value, "T")
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}
	if allDay {
		day, err := ve.GetAllDayStartAt()
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc), nil
	}
	return ve.GetStartAt()
}

func expandRule(base Event, rule string, from, until time.Time) []Event {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		log.Warnf("Skipping recurrence of %q: %v", base.Name, err)
		return []Event{base}
	}
	r.DTStart(base.Date)

	dates := r.Between(from, until, true)
	if len(dates) > maxOccurrencesPerEvent {
		log.Warnf("Truncating %q to %d occurrences", base.Name, maxOccurrencesPerEvent)
		dates = dates[:maxOccurrencesPerEvent]
	}

	out := make([]Event, 0, len(dates))
	for _, d := range dates {
		occ := base
		occ.Date = d
		occ.Name = fmt.Sprintf("%s (%s)", base.Name, d.Format(time.DateOnly))
		out = append(out, occ)
	}
	return out
}

// appendUnique keeps names unique, disambiguating repeats by date.
func appendUnique(events []Event, seen map[string]struct{}, e Event) []Event {
	if _, ok := seen[e.Name]; ok {
		e.Name = fmt.Sprintf("%s (%s)", e.Name, e.Date.Format(time.DateOnly))
		if _, ok := seen[e.Name]; ok {
			log.Debugf("Dropping duplicate ics event %q", e.Name)
			return events
		}
	}
	seen[e.Name] = struct{}{}
	return append(events, e)
}

func propertyValue(ve *ical.VEvent, property ical.ComponentProperty) string {
	p := ve.GetProperty(property)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Value)
}

func isTrue(value string) bool {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true
	}
	return false
}
