package planning

import (
	"strings"

	"github.com/Keyring-Network/keyring-notes/internal/store"
)

// ResolvedEvent is a proposed event whose tags have been mapped onto the
// owner's vocabulary.
type ResolvedEvent struct {
	Title           string
	Tags            []string
	Dates           []string
	DurationMinutes *float64
	StartMinutes    *float64
	Color           string
	// TagColor is the stored color of the first resolved tag that has one.
	TagColor string
}

type Resolution struct {
	Events      []ResolvedEvent
	UnknownTags []string
}

func (r Resolution) Pending() bool {
	return len(r.UnknownTags) > 0
}

// ResolveTags matches every tag case-insensitively against vocabulary.
// Matches take the stored spelling; misses pass through unchanged and are
// collected once per turn in UnknownTags.
func ResolveTags(events []ProposedEvent, vocabulary []store.UserTag) Resolution {
	index := make(map[string]store.UserTag, len(vocabulary))
	for _, tag := range vocabulary {
		key := strings.ToLower(strings.TrimSpace(tag.Tag))
		if key == "" {
			continue
		}
		if _, exists := index[key]; !exists {
			index[key] = tag
		}
	}

	unknownSeen := map[string]struct{}{}
	resolution := Resolution{Events: make([]ResolvedEvent, 0, len(events)), UnknownTags: []string{}}
	for _, event := range events {
		resolved := ResolvedEvent{
			Title:           event.Title,
			Tags:            []string{},
			Dates:           event.Dates,
			DurationMinutes: event.DurationMinutes,
			StartMinutes:    event.StartMinutes,
			Color:           event.Color,
		}
		onEvent := map[string]struct{}{}
		for _, raw := range event.Tags {
			name := CleanTag(raw)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if known, ok := index[key]; ok {
				name = known.Tag
				if resolved.TagColor == "" && strings.TrimSpace(known.Color) != "" {
					resolved.TagColor = known.Color
				}
			} else if _, seen := unknownSeen[key]; !seen {
				unknownSeen[key] = struct{}{}
				resolution.UnknownTags = append(resolution.UnknownTags, name)
			}
			if _, dup := onEvent[name]; dup {
				continue
			}
			onEvent[name] = struct{}{}
			resolved.Tags = append(resolved.Tags, name)
		}
		resolution.Events = append(resolution.Events, resolved)
	}
	return resolution
}

// CleanTag strips one leading '#' and surrounding whitespace.
func CleanTag(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "#")
	return strings.TrimSpace(trimmed)
}
