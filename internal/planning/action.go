package planning

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

const ActionAddEvents = "add_events"

var actionPattern = regexp.MustCompile(`(?s)\{.*"action"\s*:\s*"add_events".*\}`)

// ProposedEvent is one event as the model described it. Pointer fields are
// nil when the model omitted them or sent something that is not a number.
type ProposedEvent struct {
	Title           string
	Tags            []string
	Dates           []string
	DurationMinutes *float64
	StartMinutes    *float64
	Color           string
}

type ProposedAction struct {
	Action string
	Events []ProposedEvent
}

// Parsed is either a PlainAnswer or a Schedule.
type Parsed interface {
	isParsed()
}

type PlainAnswer struct {
	Text string
}

type Schedule struct {
	Action ProposedAction
}

func (PlainAnswer) isParsed() {}
func (Schedule) isParsed()    {}

// ParseAction looks for an add_events JSON object inside free-form model
// output. Anything that does not decode to that exact shape is returned as
// a PlainAnswer carrying the whole text.
func ParseAction(text string) Parsed {
	plain := PlainAnswer{Text: strings.TrimSpace(text)}
	span := actionPattern.FindString(text)
	if span == "" {
		return plain
	}
	var envelope struct {
		Action string          `json:"action"`
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal([]byte(span), &envelope); err != nil {
		return plain
	}
	if envelope.Action != ActionAddEvents {
		return plain
	}
	var rawEvents []json.RawMessage
	if err := json.Unmarshal(envelope.Events, &rawEvents); err != nil || rawEvents == nil {
		return plain
	}
	events := make([]ProposedEvent, 0, len(rawEvents))
	for _, raw := range rawEvents {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			return plain
		}
		events = append(events, decodeEvent(fields))
	}
	return Schedule{Action: ProposedAction{Action: envelope.Action, Events: events}}
}

func decodeEvent(fields map[string]json.RawMessage) ProposedEvent {
	event := ProposedEvent{
		Title:           decodeString(fields["title"]),
		Tags:            decodeStrings(fields["tags"]),
		Dates:           decodeStrings(fields["dates"]),
		DurationMinutes: decodeNumber(firstPresent(fields, "durationMinutes", "duration_minutes")),
		StartMinutes:    decodeNumber(firstPresent(fields, "startMinutes", "start_minutes")),
		Color:           decodeString(fields["color"]),
	}
	if len(event.Dates) == 0 {
		if date := decodeString(fields["date"]); date != "" {
			event.Dates = []string{date}
		}
	}
	return event
}

func firstPresent(fields map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, key := range keys {
		if raw, ok := fields[key]; ok {
			return raw
		}
	}
	return nil
}

func decodeString(raw json.RawMessage) string {
	var value string
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return ""
	}
	return value
}

// decodeStrings keeps the string members of a JSON array and yields an
// empty slice for anything else.
func decodeStrings(raw json.RawMessage) []string {
	out := []string{}
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return out
	}
	for _, item := range items {
		var value string
		if json.Unmarshal(item, &value) == nil {
			out = append(out, value)
		}
	}
	return out
}

func decodeNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var number float64
	if json.Unmarshal(raw, &number) == nil {
		return &number
	}
	var text string
	if json.Unmarshal(raw, &text) != nil {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil
	}
	return &parsed
}
