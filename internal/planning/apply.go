package planning

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-notes/internal/logging"
	"github.com/Keyring-Network/keyring-notes/internal/store"
)

const (
	DefaultDurationMinutes = 60
	DefaultStartMinutes    = 540
	durationStep           = 15
)

var DefaultPalette = []string{
	"#4f46e5",
	"#0ea5e9",
	"#22c55e",
	"#f59e0b",
	"#ef4444",
	"#a855f7",
	"#14b8a6",
	"#ec4899",
}

type EventCreator interface {
	CreateEvent(ctx context.Context, ownerID string, event store.CalendarEvent) (store.CalendarEvent, error)
}

type ApplyResult struct {
	Created int
	Failed  int
	Events  []store.CalendarEvent
}

type Applier struct {
	events  EventCreator
	palette []string
	logger  *zap.Logger
}

func NewApplier(events EventCreator, palette []string, logger *zap.Logger) *Applier {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Applier{events: events, palette: palette, logger: logging.OrNop(logger)}
}

// Apply writes one single-day entry per (event, date) pair, sequentially.
// A failed create is logged and counted; siblings are still attempted and
// nothing already written is rolled back. The first store error is only
// returned when no entry could be created at all.
func (a *Applier) Apply(ctx context.Context, ownerID string, events []ResolvedEvent) (ApplyResult, error) {
	result := ApplyResult{Events: []store.CalendarEvent{}}
	var firstErr error
	for _, event := range events {
		duration := RoundDuration(event.DurationMinutes)
		start := StartMinutes(event.StartMinutes)
		for _, rawDate := range event.Dates {
			date := NormalizeDate(rawDate)
			if date == "" {
				continue
			}
			created, err := a.events.CreateEvent(ctx, ownerID, store.CalendarEvent{
				Date:            date,
				StartMinutes:    start,
				DurationMinutes: duration,
				Title:           event.Title,
				Tags:            append([]string(nil), event.Tags...),
				Color:           a.colorFor(event, result.Created),
			})
			if err != nil {
				result.Failed++
				if firstErr == nil {
					firstErr = err
				}
				a.logger.Warn("calendar event create failed",
					zap.String("owner_id", ownerID),
					zap.String("date", date),
					zap.Error(err),
				)
				continue
			}
			result.Created++
			result.Events = append(result.Events, created)
		}
	}
	if result.Created == 0 && firstErr != nil {
		return result, firstErr
	}
	return result, nil
}

func (a *Applier) colorFor(event ResolvedEvent, created int) string {
	if event.TagColor != "" {
		return event.TagColor
	}
	if color := strings.TrimSpace(event.Color); color != "" {
		return color
	}
	return a.palette[created%len(a.palette)]
}

// RoundDuration snaps minutes to the nearest quarter hour, never below 15.
// Missing or non-finite input counts as an hour.
func RoundDuration(minutes *float64) int {
	value := float64(DefaultDurationMinutes)
	if minutes != nil && !math.IsNaN(*minutes) && !math.IsInf(*minutes, 0) {
		value = *minutes
	}
	rounded := int(math.Round(value/durationStep)) * durationStep
	return max(durationStep, rounded)
}

// StartMinutes rounds to a whole minute without clamping to the day.
func StartMinutes(minutes *float64) int {
	if minutes == nil || math.IsNaN(*minutes) || math.IsInf(*minutes, 0) {
		return DefaultStartMinutes
	}
	return int(math.Round(*minutes))
}

// NormalizeDate keeps the first ten characters, so a full timestamp
// collapses to its YYYY-MM-DD prefix.
func NormalizeDate(raw string) string {
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) > 10 {
		runes = runes[:10]
	}
	return string(runes)
}
