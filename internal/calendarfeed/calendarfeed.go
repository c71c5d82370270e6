package calendarfeed

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/Keyring-Network/keyring-notes/internal/store"
)

const productID = "-//keyring-notes//calendar feed//EN"

var propertyColor = ical.ComponentProperty("COLOR")

// Render serializes calendar entries as an iCalendar document. Start times
// are minutes after local midnight in loc.
func Render(events []store.CalendarEvent, loc *time.Location, stamp time.Time) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, event := range events {
		day, err := time.ParseInLocation(time.DateOnly, event.Date, loc)
		if err != nil {
			return "", fmt.Errorf("event %s: invalid date %q: %w", event.ID, event.Date, err)
		}
		start := day.Add(time.Duration(event.StartMinutes) * time.Minute)
		end := start.Add(time.Duration(event.DurationMinutes) * time.Minute)

		vevent := cal.AddEvent(event.ID + "@keyring-notes")
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(start)
		vevent.SetEndAt(end)
		vevent.SetSummary(event.Title)
		for _, tag := range event.Tags {
			vevent.AddProperty(ical.ComponentPropertyCategories, tag)
		}
		if event.Color != "" {
			vevent.SetProperty(propertyColor, event.Color)
		}
	}
	return cal.Serialize(), nil
}
