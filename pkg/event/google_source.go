package event

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/angularhub/hub/internal/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	googleLanguageKey = "language"
	googleTypeKey     = "type"
	googleLogoKey     = "logo"
	googleCFPKey      = "callForPapers"
	googleFreeKey     = "isFree"
	googleRemoteKey   = "isRemote"

	googlePageSize = 250
)

// EventLister lists the expanded events of a Google calendar page by page.
type EventLister interface {
	List(ctx context.Context, calendarId string, from, to time.Time, pageToken string) (*gcal.Events, error)
}

type googleEventLister struct {
	service *gcal.Service
}

func (l *googleEventLister) List(ctx context.Context, calendarId string, from, to time.Time, pageToken string) (*gcal.Events, error) {
	call := l.service.Events.List(calendarId).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(googlePageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

// NewGoogleEventLister builds a Calendar API client. A service account credentials
// file takes precedence over an API key; an API key is enough for public calendars.
func NewGoogleEventLister(ctx context.Context, apiKey, credentialsFile string) (EventLister, error) {
	var opts []option.ClientOption
	switch {
	case credentialsFile != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("could not read google credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, gcal.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("could not parse google credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case apiKey != "":
		opts = append(opts, option.WithAPIKey(apiKey))
	default:
		return nil, fmt.Errorf("google source needs an api key or a credentials file")
	}

	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Calendar service: %w", err)
	}
	return &googleEventLister{service: service}, nil
}

// GoogleSource loads events of a shared Google calendar. Event metadata is read
// from the shared extended properties set by calendar maintainers.
type GoogleSource struct {
	lister          EventLister
	calendarId      string
	defaultLanguage string
	horizon         time.Duration
	location        *time.Location
	clock           utils.Clock
}

type GoogleOptions struct {
	DefaultLanguage string
	HorizonDays     int
	Location        *time.Location
	Clock           utils.Clock
}

func NewGoogleSource(lister EventLister, calendarId string, opts GoogleOptions) *GoogleSource {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 365
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{}
	}
	return &GoogleSource{
		lister:          lister,
		calendarId:      calendarId,
		defaultLanguage: opts.DefaultLanguage,
		horizon:         time.Duration(opts.HorizonDays) * 24 * time.Hour,
		location:        opts.Location,
		clock:           opts.Clock,
	}
}

func (s *GoogleSource) Name() string {
	return "google:" + s.calendarId
}

func (s *GoogleSource) Load(ctx context.Context) ([]Event, error) {
	from := s.clock.Now()
	to := from.Add(s.horizon)

	events := make([]Event, 0)
	seen := make(map[string]struct{})
	pageToken := ""
	for {
		page, err := s.lister.List(ctx, s.calendarId, from, to, pageToken)
		if err != nil {
			err := fmt.Errorf("unable to retrieve events from Google Calendar: %w", err)
			log.Error(err)
			return nil, err
		}
		for _, item := range page.Items {
			e, err := s.toEvent(item)
			if err != nil {
				log.Warnf("Skipping google event %s: %v", item.Id, err)
				continue
			}
			events = appendUnique(events, seen, e)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	log.Debugf("Loaded %d events from google calendar %s", len(events), s.calendarId)
	return events, nil
}

func (s *GoogleSource) toEvent(item *gcal.Event) (Event, error) {
	if item.Status == "cancelled" {
		return Event{}, fmt.Errorf("event is cancelled")
	}
	if item.Summary == "" {
		return Event{}, fmt.Errorf("event has no summary")
	}
	date, err := s.startOf(item.Start)
	if err != nil {
		return Event{}, err
	}

	var shared map[string]string
	if item.ExtendedProperties != nil {
		shared = item.ExtendedProperties.Shared
	}
	language := strings.TrimSpace(shared[googleLanguageKey])
	if language == "" {
		language = s.defaultLanguage
	}
	url := shared["url"]
	if url == "" {
		url = item.HtmlLink
	}

	return Event{
		Name:             item.Summary,
		Date:             date,
		Language:         language,
		Type:             ParseType(shared[googleTypeKey]),
		Location:         item.Location,
		URL:              url,
		Logo:             shared[googleLogoKey],
		CallForPapersURL: shared[googleCFPKey],
		IsFree:           isTrue(shared[googleFreeKey]),
		IsRemote:         isTrue(shared[googleRemoteKey]),
	}, nil
}

func (s *GoogleSource) startOf(start *gcal.EventDateTime) (time.Time, error) {
	if start == nil {
		return time.Time{}, fmt.Errorf("event has no start")
	}
	if start.DateTime != "" {
		t, err := time.Parse(time.RFC3339, start.DateTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid start time: %w", err)
		}
		return t.In(s.location), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, start.Date, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}
	return t, nil
}
