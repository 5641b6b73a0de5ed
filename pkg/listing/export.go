package listing

import (
	"strconv"
	"time"

	"github.com/angularhub/hub/pkg/event"
	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const icsProductId = "-//angularhub//hub//EN"

// ExportICS renders events as an iCalendar feed. Metadata goes into the same X-HUB-*
// properties ICSSource reads, so an exported feed can be loaded back as a source.
// UIDs are derived from event names and stay stable across exports. Events at
// midnight in loc are date-only and get an all-day DTSTART for that day.
func ExportICS(events []event.Event, stamp time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductId)
	cal.SetXWRCalName("Community events")
	cal.SetXPublishedTTL("PT1H")

	for _, e := range events {
		ve := cal.AddEvent(eventUID(e.Name))
		ve.SetDtStampTime(stamp)
		if local := e.Date.In(loc); isMidnight(local) {
			ve.SetAllDayStartAt(local)
		} else {
			ve.SetStartAt(e.Date)
		}
		ve.SetSummary(e.Name)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.URL != "" {
			ve.SetURL(e.URL)
		}
		if e.Language != "" {
			ve.AddProperty(event.PropertyLanguage, e.Language)
		}
		if e.Type != "" {
			ve.AddProperty(event.PropertyEventType, string(e.Type))
		}
		if e.Logo != "" {
			ve.AddProperty(event.PropertyLogo, e.Logo)
		}
		if e.CallForPapersURL != "" {
			ve.AddProperty(event.PropertyCFP, e.CallForPapersURL)
		}
		ve.AddProperty(event.PropertyFree, strconv.FormatBool(e.IsFree))
		ve.AddProperty(event.PropertyRemote, strconv.FormatBool(e.IsRemote))
	}
	return cal.Serialize()
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func eventUID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("hub:event:"+name)).String() + "@angularhub"
}
