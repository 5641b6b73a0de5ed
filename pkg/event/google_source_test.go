package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angularhub/hub/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
)

type stubEventLister struct {
	pages      map[string]*gcal.Events
	err        error
	calls      int
	calendarId string
	from, to   time.Time
}

func (l *stubEventLister) List(ctx context.Context, calendarId string, from, to time.Time, pageToken string) (*gcal.Events, error) {
	l.calls++
	l.calendarId = calendarId
	l.from, l.to = from, to
	if l.err != nil {
		return nil, l.err
	}
	return l.pages[pageToken], nil
}

func TestGoogleSource_Load(t *testing.T) {
	now := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	clock := &utils.MockClock{FixedNow: now}

	t.Run("reads all pages and shared properties", func(t *testing.T) {
		lister := &stubEventLister{pages: map[string]*gcal.Events{
			"": {
				Items: []*gcal.Event{
					{
						Id:       "1",
						Summary:  "ng-conf",
						Location: "Salt Lake City",
						HtmlLink: "https://calendar.google.com/event?eid=1",
						Start:    &gcal.EventDateTime{DateTime: "2024-05-01T10:00:00-06:00"},
						ExtendedProperties: &gcal.EventExtendedProperties{Shared: map[string]string{
							"language":      "English",
							"type":          "conference",
							"url":           "https://ng-conf.org",
							"callForPapers": "https://ng-conf.org/cfp",
							"isRemote":      "true",
						}},
					},
				},
				NextPageToken: "page-2",
			},
			"page-2": {
				Items: []*gcal.Event{
					{
						Id:       "2",
						Summary:  "Angular Meetup Paris",
						HtmlLink: "https://calendar.google.com/event?eid=2",
						Start:    &gcal.EventDateTime{Date: "2024-05-02"},
					},
				},
			},
		}}
		source := NewGoogleSource(lister, "community@group.calendar.google.com", GoogleOptions{
			DefaultLanguage: "French",
			HorizonDays:     30,
			Clock:           clock,
		})

		events, err := source.Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, lister.calls)
		assert.Equal(t, "community@group.calendar.google.com", lister.calendarId)
		assert.True(t, now.Equal(lister.from))
		assert.True(t, now.AddDate(0, 0, 30).Equal(lister.to))
		require.Len(t, events, 2)

		assert.Equal(t, "ng-conf", events[0].Name)
		assert.Equal(t, "English", events[0].Language)
		assert.Equal(t, Conference, events[0].Type)
		assert.Equal(t, "https://ng-conf.org", events[0].URL)
		assert.Equal(t, "https://ng-conf.org/cfp", events[0].CallForPapersURL)
		assert.True(t, events[0].IsRemote)
		assert.True(t, time.Date(2024, time.May, 1, 16, 0, 0, 0, time.UTC).Equal(events[0].Date))

		assert.Equal(t, "Angular Meetup Paris", events[1].Name)
		assert.Equal(t, "French", events[1].Language)
		assert.Equal(t, "https://calendar.google.com/event?eid=2", events[1].URL)
		assert.True(t, time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC).Equal(events[1].Date))
	})

	t.Run("skips cancelled and incomplete events", func(t *testing.T) {
		lister := &stubEventLister{pages: map[string]*gcal.Events{
			"": {Items: []*gcal.Event{
				{Id: "1", Summary: "cancelled", Status: "cancelled", Start: &gcal.EventDateTime{Date: "2024-05-01"}},
				{Id: "2", Summary: "", Start: &gcal.EventDateTime{Date: "2024-05-01"}},
				{Id: "3", Summary: "no start"},
				{Id: "4", Summary: "kept", Start: &gcal.EventDateTime{Date: "2024-05-01"}},
			}},
		}}

		events, err := NewGoogleSource(lister, "id", GoogleOptions{Clock: clock}).Load(context.Background())

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "kept", events[0].Name)
	})

	t.Run("api error", func(t *testing.T) {
		lister := &stubEventLister{err: errors.New("quota exceeded")}

		_, err := NewGoogleSource(lister, "id", GoogleOptions{Clock: clock}).Load(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})
}
