package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Keyring-Network/keyring-notes/internal/llm"
	"github.com/Keyring-Network/keyring-notes/internal/prompts"
	"github.com/Keyring-Network/keyring-notes/internal/store"
)

// Composer renders grounding prompts and calls the completion provider once.
// Provider failures, rate limits included, are returned untouched.
type Composer struct {
	provider llm.Provider
	model    string
}

func NewComposer(provider llm.Provider, model string) *Composer {
	return &Composer{provider: provider, model: model}
}

func (c *Composer) Knowledge(ctx context.Context, tmpl prompts.Templates, groundingContext, question string) (string, error) {
	return c.generate(ctx, tmpl.KnowledgeInstruction, KnowledgePrompt(tmpl, groundingContext, question))
}

func (c *Composer) Planning(ctx context.Context, tmpl prompts.Templates, input PlanningPrompt) (string, error) {
	return c.generate(ctx, tmpl.PlanningInstruction, input.Render(tmpl))
}

func (c *Composer) generate(ctx context.Context, system, prompt string) (string, error) {
	text, err := c.provider.Generate(ctx, llm.Request{
		Model:             c.model,
		Prompt:            prompt,
		SystemInstruction: system,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func KnowledgePrompt(tmpl prompts.Templates, groundingContext, question string) string {
	if strings.TrimSpace(groundingContext) == "" {
		groundingContext = tmpl.NoContext
	}
	var b strings.Builder
	b.WriteString(tmpl.ContextHeading)
	b.WriteString("\n")
	b.WriteString(groundingContext)
	b.WriteString("\n\n")
	b.WriteString(tmpl.QuestionHeading)
	b.WriteString("\n")
	b.WriteString(question)
	return b.String()
}

// PlanningPrompt is everything a planning turn shows the model.
type PlanningPrompt struct {
	Today   string
	Events  []store.CalendarEvent
	Tags    []store.UserTag
	History []HistoryTurn
	Message string
}

type promptEvent struct {
	Date            string   `json:"date"`
	StartMinutes    int      `json:"start_minutes"`
	DurationMinutes int      `json:"duration_minutes"`
	Title           string   `json:"title"`
	Tags            []string `json:"tags"`
}

func (p PlanningPrompt) Render(tmpl prompts.Templates) string {
	var b strings.Builder
	b.WriteString(tmpl.TodayHeading + " " + p.Today + "\n\n")

	b.WriteString(tmpl.EventsHeading + "\n")
	if len(p.Events) == 0 {
		b.WriteString(tmpl.NoEvents + "\n")
	}
	for _, event := range p.Events {
		tags := event.Tags
		if tags == nil {
			tags = []string{}
		}
		line, _ := json.Marshal(promptEvent{
			Date:            event.Date,
			StartMinutes:    event.StartMinutes,
			DurationMinutes: event.DurationMinutes,
			Title:           event.Title,
			Tags:            tags,
		})
		b.Write(line)
		b.WriteString("\n")
	}

	b.WriteString("\n" + tmpl.VocabularyHeading + "\n")
	if len(p.Tags) == 0 {
		b.WriteString(tmpl.NoVocabulary + "\n")
	} else {
		names := make([]string, 0, len(p.Tags))
		for _, tag := range p.Tags {
			names = append(names, tag.Tag)
		}
		vocabulary, _ := json.Marshal(names)
		b.Write(vocabulary)
		b.WriteString("\n")
	}

	if len(p.History) > 0 {
		b.WriteString("\n" + tmpl.HistoryHeading + "\n")
		for _, turn := range p.History {
			b.WriteString(turn.Role + ": " + strings.TrimSpace(turn.Content) + "\n")
		}
	}

	b.WriteString("\n" + tmpl.RequestHeading + "\n")
	b.WriteString(p.Message)
	return b.String()
}
