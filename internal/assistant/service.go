package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Keyring-Network/keyring-notes/internal/events"
	"github.com/Keyring-Network/keyring-notes/internal/lang"
	"github.com/Keyring-Network/keyring-notes/internal/llm"
	"github.com/Keyring-Network/keyring-notes/internal/logging"
	"github.com/Keyring-Network/keyring-notes/internal/planning"
	"github.com/Keyring-Network/keyring-notes/internal/prompts"
	"github.com/Keyring-Network/keyring-notes/internal/retrieval"
	"github.com/Keyring-Network/keyring-notes/internal/store"
	"github.com/Keyring-Network/keyring-notes/internal/textnorm"
	"github.com/Keyring-Network/keyring-notes/internal/validation"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	DefaultHistoryWindow      = 10
	DefaultPlanningWindowDays = 30
)

type Status string

const (
	StatusAnswered  Status = "answered"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Store is the slice of persistence a turn reads and writes.
type Store interface {
	store.FragmentSearcher
	store.ResourceSearcher
	store.CalendarStore
	store.TagStore
}

type Notifier interface {
	Publish(event events.AssistantEvent) events.AssistantEvent
}

type HistoryTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

type AskInput struct {
	Message string `json:"message" validate:"required"`
	Lang    string `json:"lang,omitempty"`
}

type PlanInput struct {
	Message string        `json:"message" validate:"required"`
	Lang    string        `json:"lang,omitempty"`
	History []HistoryTurn `json:"history,omitempty" validate:"dive"`
}

type ConfirmInput struct {
	PlanInput
	Tags []string `json:"tags" validate:"min=1,dive,required"`
}

type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// PlanningResult is the outcome of one planning turn. UnknownTags is only
// set while the turn waits for confirmation; Created only once events were
// written.
type PlanningResult struct {
	Status      Status   `json:"status"`
	Text        string   `json:"text"`
	Created     *int     `json:"created,omitempty"`
	UnknownTags []string `json:"unknownTags,omitempty"`
}

type Config struct {
	Model              string
	FragmentLimit      int
	HistoryWindow      int
	PlanningWindowDays int
	Palette            []string
}

type Deps struct {
	Store    Store
	Provider llm.Provider
	Catalog  *prompts.Catalog
	Notifier Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

type Service struct {
	store    Store
	composer *Composer
	merger   *retrieval.Merger
	applier  *planning.Applier
	catalog  *prompts.Catalog
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	cfg      Config
}

func NewService(deps Deps, cfg Config) *Service {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.PlanningWindowDays <= 0 {
		cfg.PlanningWindowDays = DefaultPlanningWindowDays
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = planning.DefaultPalette
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = prompts.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.OrNop(deps.Logger)
	return &Service{
		store:    deps.Store,
		composer: NewComposer(deps.Provider, cfg.Model),
		merger:   retrieval.NewMerger(deps.Store, deps.Store, cfg.FragmentLimit, logger),
		applier:  planning.NewApplier(deps.Store, cfg.Palette, logger),
		catalog:  catalog,
		notifier: deps.Notifier,
		logger:   logger,
		now:      now,
		cfg:      cfg,
	}
}

// AnswerQuestion answers from the owner's fragments and resources only.
func (s *Service) AnswerQuestion(ctx context.Context, ownerID string, input AskInput) (Answer, error) {
	input.Message = strings.TrimSpace(input.Message)
	if err := checkInput(ownerID, input); err != nil {
		return Answer{}, err
	}
	code := lang.Parse(input.Lang)
	tmpl := s.catalog.For(code)

	keywords := textnorm.ExtractKeywords(input.Message, code)
	grounding, err := s.merger.Retrieve(ctx, ownerID, keywords, tmpl)
	if err != nil {
		return Answer{}, err
	}
	text, err := s.composer.Knowledge(ctx, tmpl, grounding.Context, input.Message)
	if err != nil {
		return Answer{}, err
	}
	s.logger.Info("question answered",
		zap.String("owner_id", ownerID),
		zap.Int("keywords", len(keywords)),
		zap.Int("sources", len(grounding.Sources)),
	)
	return Answer{Text: text, Sources: grounding.Sources}, nil
}

// PlanningTurn either answers about planned time or turns the request into
// calendar entries. Unknown tags stop the turn before anything is written.
func (s *Service) PlanningTurn(ctx context.Context, ownerID string, input PlanInput) (PlanningResult, error) {
	input.Message = strings.TrimSpace(input.Message)
	if err := checkInput(ownerID, input); err != nil {
		return PlanningResult{}, err
	}
	return s.planningTurn(ctx, ownerID, input)
}

// ConfirmTags adds the confirmed tags to the owner's vocabulary and replays
// the original request.
func (s *Service) ConfirmTags(ctx context.Context, ownerID string, input ConfirmInput) (PlanningResult, error) {
	input.Message = strings.TrimSpace(input.Message)
	if err := checkInput(ownerID, input); err != nil {
		return PlanningResult{}, err
	}
	for i, raw := range input.Tags {
		name := planning.CleanTag(raw)
		if name == "" {
			continue
		}
		_, err := s.store.CreateTag(ctx, ownerID, store.UserTag{
			Tag:   name,
			Title: name,
			Color: s.cfg.Palette[i%len(s.cfg.Palette)],
		})
		if err != nil && !errors.Is(err, store.ErrTagExists) {
			return PlanningResult{}, fmt.Errorf("create tag %q: %w", name, err)
		}
	}
	return s.planningTurn(ctx, ownerID, input.PlanInput)
}

func (s *Service) planningTurn(ctx context.Context, ownerID string, input PlanInput) (PlanningResult, error) {
	code := lang.Parse(input.Lang)
	tmpl := s.catalog.For(code)
	today := s.now().UTC()
	window := store.EventWindow{
		StartDate: today.AddDate(0, 0, -s.cfg.PlanningWindowDays).Format(time.DateOnly),
		EndDate:   today.AddDate(0, 0, s.cfg.PlanningWindowDays).Format(time.DateOnly),
	}

	var (
		calendar   []store.CalendarEvent
		vocabulary []store.UserTag
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		found, err := s.store.ListEvents(groupCtx, ownerID, window)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		calendar = found
		return nil
	})
	group.Go(func() error {
		found, err := s.store.ListTags(groupCtx, ownerID)
		if err != nil {
			return fmt.Errorf("list tags: %w", err)
		}
		vocabulary = found
		return nil
	})
	if err := group.Wait(); err != nil {
		return PlanningResult{}, err
	}

	raw, err := s.composer.Planning(ctx, tmpl, PlanningPrompt{
		Today:   today.Format(time.DateOnly),
		Events:  calendar,
		Tags:    vocabulary,
		History: recentHistory(input.History, s.cfg.HistoryWindow),
		Message: input.Message,
	})
	if err != nil {
		return PlanningResult{}, err
	}

	var schedule planning.Schedule
	switch parsed := planning.ParseAction(raw).(type) {
	case planning.PlainAnswer:
		s.logOutcome(ownerID, StatusAnswered, 0, 0)
		return PlanningResult{Status: StatusAnswered, Text: parsed.Text}, nil
	case planning.Schedule:
		schedule = parsed
	}

	resolution := planning.ResolveTags(schedule.Action.Events, vocabulary)
	if resolution.Pending() {
		s.notify(ownerID, events.TypeConfirmationRequired, map[string]any{"unknownTags": resolution.UnknownTags})
		s.logOutcome(ownerID, StatusPending, 0, len(resolution.UnknownTags))
		return PlanningResult{
			Status:      StatusPending,
			Text:        tmpl.UnknownTagsText(resolution.UnknownTags),
			UnknownTags: resolution.UnknownTags,
		}, nil
	}

	applied, err := s.applier.Apply(ctx, ownerID, resolution.Events)
	if err != nil {
		return PlanningResult{}, err
	}
	if applied.Created > 0 {
		s.notify(ownerID, events.TypeEventsCreated, map[string]any{"created": applied.Created, "events": applied.Events})
	}
	s.logOutcome(ownerID, StatusCompleted, applied.Created, 0)
	created := applied.Created
	return PlanningResult{
		Status:  StatusCompleted,
		Text:    tmpl.AddedEventsText(created),
		Created: &created,
	}, nil
}

func (s *Service) notify(ownerID, eventType string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(events.AssistantEvent{OwnerID: ownerID, Type: eventType, Payload: payload})
}

func (s *Service) logOutcome(ownerID string, status Status, created, unknown int) {
	s.logger.Info("planning turn finished",
		zap.String("owner_id", ownerID),
		zap.String("outcome", string(status)),
		zap.Int("created", created),
		zap.Int("unknown_tags", unknown),
	)
}

func checkInput(ownerID string, input any) error {
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if err := validation.Struct(input); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	return nil
}

func recentHistory(history []HistoryTurn, window int) []HistoryTurn {
	if len(history) > window {
		history = history[len(history)-window:]
	}
	out := make([]HistoryTurn, 0, len(history))
	for _, turn := range history {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		out = append(out, turn)
	}
	return out
}
