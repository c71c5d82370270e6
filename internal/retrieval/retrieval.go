package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Keyring-Network/keyring-notes/internal/logging"
	"github.com/Keyring-Network/keyring-notes/internal/prompts"
	"github.com/Keyring-Network/keyring-notes/internal/store"
)

const DefaultFragmentLimit = 5

// Grounding is the merged retrieval output handed to answer composition.
type Grounding struct {
	Context string
	Sources []string
}

type Merger struct {
	fragments store.FragmentSearcher
	resources store.ResourceSearcher
	limit     int
	logger    *zap.Logger
}

func NewMerger(fragments store.FragmentSearcher, resources store.ResourceSearcher, limit int, logger *zap.Logger) *Merger {
	if limit <= 0 {
		limit = DefaultFragmentLimit
	}
	return &Merger{
		fragments: fragments,
		resources: resources,
		limit:     limit,
		logger:    logging.OrNop(logger),
	}
}

// Retrieve runs the fragment and resource lookups concurrently with the
// same keyword set and merges them into one grounding context.
func (m *Merger) Retrieve(ctx context.Context, ownerID string, keywords []string, tmpl prompts.Templates) (Grounding, error) {
	var (
		fragments []store.Fragment
		resources []store.Resource
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		found, err := m.fragments.SearchFragments(groupCtx, ownerID, keywords, m.limit)
		if err != nil {
			return fmt.Errorf("search fragments: %w", err)
		}
		fragments = found
		return nil
	})
	group.Go(func() error {
		found, err := m.resources.SearchResources(groupCtx, ownerID, keywords)
		if err != nil {
			return fmt.Errorf("search resources: %w", err)
		}
		resources = found
		return nil
	})
	if err := group.Wait(); err != nil {
		return Grounding{}, err
	}

	m.logger.Debug("retrieval merged",
		zap.String("owner_id", ownerID),
		zap.Int("keywords", len(keywords)),
		zap.Int("fragments", len(fragments)),
		zap.Int("resources", len(resources)),
	)
	return Merge(fragments, resources, tmpl), nil
}

// Merge builds the context string and the ordered, deduplicated source list.
func Merge(fragments []store.Fragment, resources []store.Resource, tmpl prompts.Templates) Grounding {
	sources := newOrderedSet()

	fragmentBlocks := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		name := FragmentSourceName(fragment, tmpl.GenericSource)
		sources.add(name)
		fragmentBlocks = append(fragmentBlocks, fmt.Sprintf("[%s: %s]\n%s", tmpl.SourcePrefix, name, strings.TrimSpace(fragment.Content)))
	}

	resourceBlocks := make([]string, 0, len(resources))
	for _, resource := range resources {
		sources.add(ResourceSourceName(resource))
		resourceBlocks = append(resourceBlocks, formatResource(resource, tmpl))
	}

	fragmentContext := strings.Join(fragmentBlocks, "\n\n")
	resourceContext := strings.Join(resourceBlocks, "\n\n")

	var merged string
	switch {
	case fragmentContext != "" && resourceContext != "":
		merged = fragmentContext + "\n\n" + tmpl.ResourceLabel + "\n" + resourceContext
	case fragmentContext != "":
		merged = fragmentContext
	default:
		merged = resourceContext
	}
	return Grounding{Context: merged, Sources: sources.items()}
}

// FragmentSourceName prefers the document name, then the note title.
func FragmentSourceName(fragment store.Fragment, generic string) string {
	if name := strings.TrimSpace(fragment.SourceName); name != "" {
		return name
	}
	if title := strings.TrimSpace(fragment.NoteTitle); title != "" {
		return title
	}
	return generic
}

func ResourceSourceName(resource store.Resource) string {
	if title := strings.TrimSpace(resource.Title); title != "" {
		return title
	}
	return strings.TrimSpace(resource.Description)
}

func formatResource(resource store.Resource, tmpl prompts.Templates) string {
	lines := []string{fmt.Sprintf("[%s: %s]", tmpl.ResourcePrefix, ResourceSourceName(resource))}
	if resource.URL != "" {
		lines = append(lines, "URL: "+resource.URL)
	}
	if resource.Description != "" {
		lines = append(lines, resource.Description)
	}
	if len(resource.Tags) > 0 {
		lines = append(lines, "Tags: "+strings.Join(resource.Tags, ", "))
	}
	return strings.Join(lines, "\n")
}

type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}, order: []string{}}
}

func (s *orderedSet) add(value string) {
	if value == "" {
		return
	}
	if _, ok := s.seen[value]; ok {
		return
	}
	s.seen[value] = struct{}{}
	s.order = append(s.order, value)
}

func (s *orderedSet) items() []string {
	return s.order
}
