package store

import (
	"context"
	"errors"
)

var (
	ErrTagExists = errors.New("tag already exists")
	ErrNotFound  = errors.New("not found")
)

type Fragment struct {
	ID         string
	OwnerID    string
	Content    string
	SourceName string
	NoteTitle  string
	ChunkIndex int
	CreatedAt  string
}

type Resource struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	URL         string
	Tags        []string
	CreatedAt   string
}

type CalendarEvent struct {
	ID              string
	OwnerID         string
	Date            string
	StartMinutes    int
	DurationMinutes int
	Title           string
	Tags            []string
	Color           string
	CreatedAt       string
}

type UserTag struct {
	ID        string
	OwnerID   string
	Tag       string
	Title     string
	Color     string
	CreatedAt string
}

// EventWindow bounds a calendar listing; both dates are inclusive YYYY-MM-DD.
type EventWindow struct {
	StartDate string
	EndDate   string
}

type FragmentSearcher interface {
	SearchFragments(ctx context.Context, ownerID string, keywords []string, limit int) ([]Fragment, error)
}

type ResourceSearcher interface {
	SearchResources(ctx context.Context, ownerID string, keywords []string) ([]Resource, error)
}

type CalendarStore interface {
	ListEvents(ctx context.Context, ownerID string, window EventWindow) ([]CalendarEvent, error)
	CreateEvent(ctx context.Context, ownerID string, event CalendarEvent) (CalendarEvent, error)
}

type TagStore interface {
	ListTags(ctx context.Context, ownerID string) ([]UserTag, error)
	CreateTag(ctx context.Context, ownerID string, tag UserTag) (UserTag, error)
}

type Store interface {
	FragmentSearcher
	ResourceSearcher
	CalendarStore
	TagStore
	AddFragment(ctx context.Context, fragment Fragment) error
	AddResource(ctx context.Context, resource Resource) error
	Ping(ctx context.Context) error
}
