package api

import (
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Keyring-Network/keyring-notes/internal/calendarfeed"
	"github.com/Keyring-Network/keyring-notes/internal/store"
)

const defaultFeedWindowDays = 30

func (s *Server) calendarFeed(w http.ResponseWriter, r *http.Request) {
	loc := s.location()
	window, ok := s.feedWindow(r, loc)
	if !ok {
		http.Error(w, "start and end must be YYYY-MM-DD with start <= end", http.StatusBadRequest)
		return
	}
	entries, err := s.store.ListEvents(r.Context(), ownerFrom(r.Context()), window)
	if err != nil {
		s.writeError(w, err)
		return
	}
	body, err := calendarfeed.Render(entries, loc, s.now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	_, _ = w.Write([]byte(body))
}

// feedWindow reads start/end query dates, defaulting each side to the
// planning window around today.
func (s *Server) feedWindow(r *http.Request, loc *time.Location) (store.EventWindow, bool) {
	days := s.cfg.PlanningWindowDays
	if days <= 0 {
		days = defaultFeedWindowDays
	}
	today := s.now().In(loc)
	window := store.EventWindow{
		StartDate: today.AddDate(0, 0, -days).Format(time.DateOnly),
		EndDate:   today.AddDate(0, 0, days).Format(time.DateOnly),
	}
	query := r.URL.Query()
	if value := strings.TrimSpace(query.Get("start")); value != "" {
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			return store.EventWindow{}, false
		}
		window.StartDate = value
	}
	if value := strings.TrimSpace(query.Get("end")); value != "" {
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			return store.EventWindow{}, false
		}
		window.EndDate = value
	}
	if window.StartDate > window.EndDate {
		return store.EventWindow{}, false
	}
	return window, true
}

func (s *Server) location() *time.Location {
	name := strings.TrimSpace(s.cfg.CalendarTimezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
