package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Keyring-Network/keyring-notes/internal/store"
)

type MemoryStore struct {
	mu        sync.RWMutex
	fragments map[string][]store.Fragment
	resources map[string][]store.Resource
	events    map[string][]store.CalendarEvent
	tags      map[string][]store.UserTag
	now       func() time.Time
}

func New() *MemoryStore {
	return &MemoryStore{
		fragments: map[string][]store.Fragment{},
		resources: map[string][]store.Resource{},
		events:    map[string][]store.CalendarEvent{},
		tags:      map[string][]store.UserTag{},
		now:       time.Now,
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) AddFragment(ctx context.Context, fragment store.Fragment) error {
	if strings.TrimSpace(fragment.OwnerID) == "" {
		return errors.New("fragment owner is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if fragment.ID == "" {
		fragment.ID = uuid.New().String()
	}
	if fragment.CreatedAt == "" {
		fragment.CreatedAt = m.timestamp()
	}
	m.fragments[fragment.OwnerID] = append(m.fragments[fragment.OwnerID], fragment)
	return nil
}

func (m *MemoryStore) AddResource(ctx context.Context, resource store.Resource) error {
	if strings.TrimSpace(resource.OwnerID) == "" {
		return errors.New("resource owner is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if resource.ID == "" {
		resource.ID = uuid.New().String()
	}
	if resource.CreatedAt == "" {
		resource.CreatedAt = m.timestamp()
	}
	resource.Tags = cloneStrings(resource.Tags)
	m.resources[resource.OwnerID] = append(m.resources[resource.OwnerID], resource)
	return nil
}

func (m *MemoryStore) SearchFragments(ctx context.Context, ownerID string, keywords []string, limit int) ([]store.Fragment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := []store.Fragment{}
	if limit <= 0 {
		return results, nil
	}
	for _, fragment := range m.fragments[ownerID] {
		if len(results) >= limit {
			break
		}
		if store.MatchesAny(fragment.Content, keywords) {
			results = append(results, fragment)
		}
	}
	return results, nil
}

func (m *MemoryStore) SearchResources(ctx context.Context, ownerID string, keywords []string) ([]store.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := []store.Resource{}
	for _, resource := range m.resources[ownerID] {
		if store.MatchesAny(store.ResourceSearchText(resource), keywords) {
			copy := resource
			copy.Tags = cloneStrings(resource.Tags)
			results = append(results, copy)
		}
	}
	return results, nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, ownerID string, window store.EventWindow) ([]store.CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := []store.CalendarEvent{}
	for _, event := range m.events[ownerID] {
		if window.StartDate != "" && event.Date < window.StartDate {
			continue
		}
		if window.EndDate != "" && event.Date > window.EndDate {
			continue
		}
		copy := event
		copy.Tags = cloneStrings(event.Tags)
		results = append(results, copy)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Date != results[j].Date {
			return results[i].Date < results[j].Date
		}
		return results[i].StartMinutes < results[j].StartMinutes
	})
	return results, nil
}

func (m *MemoryStore) CreateEvent(ctx context.Context, ownerID string, event store.CalendarEvent) (store.CalendarEvent, error) {
	if strings.TrimSpace(ownerID) == "" {
		return store.CalendarEvent{}, errors.New("event owner is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = uuid.New().String()
	event.OwnerID = ownerID
	event.Tags = cloneStrings(event.Tags)
	event.CreatedAt = m.timestamp()
	m.events[ownerID] = append(m.events[ownerID], event)
	created := event
	created.Tags = cloneStrings(event.Tags)
	return created, nil
}

func (m *MemoryStore) ListTags(ctx context.Context, ownerID string) ([]store.UserTag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]store.UserTag, len(m.tags[ownerID]))
	copy(results, m.tags[ownerID])
	return results, nil
}

func (m *MemoryStore) CreateTag(ctx context.Context, ownerID string, tag store.UserTag) (store.UserTag, error) {
	name := strings.TrimSpace(tag.Tag)
	if name == "" {
		return store.UserTag{}, errors.New("tag is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tags[ownerID] {
		if strings.EqualFold(existing.Tag, name) {
			return store.UserTag{}, store.ErrTagExists
		}
	}
	tag.ID = uuid.New().String()
	tag.OwnerID = ownerID
	tag.Tag = name
	if strings.TrimSpace(tag.Title) == "" {
		tag.Title = name
	}
	tag.CreatedAt = m.timestamp()
	m.tags[ownerID] = append(m.tags[ownerID], tag)
	return tag, nil
}

func (m *MemoryStore) timestamp() string {
	return m.now().UTC().Format(time.RFC3339Nano)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
