package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Keyring-Network/keyring-notes/internal/lang"
)

//go:embed prompts.yaml
var defaultCatalog []byte

// Templates holds every localized string the assistant renders for one language.
type Templates struct {
	KnowledgeInstruction string `yaml:"knowledge_instruction"`
	PlanningInstruction  string `yaml:"planning_instruction"`
	ContextHeading       string `yaml:"context_heading"`
	QuestionHeading      string `yaml:"question_heading"`
	ResourceLabel        string `yaml:"resource_label"`
	ResourcePrefix       string `yaml:"resource_prefix"`
	SourcePrefix         string `yaml:"source_prefix"`
	GenericSource        string `yaml:"generic_source"`
	NoContext            string `yaml:"no_context"`
	TodayHeading         string `yaml:"today_heading"`
	EventsHeading        string `yaml:"events_heading"`
	NoEvents             string `yaml:"no_events"`
	VocabularyHeading    string `yaml:"vocabulary_heading"`
	NoVocabulary         string `yaml:"no_vocabulary"`
	HistoryHeading       string `yaml:"history_heading"`
	RequestHeading       string `yaml:"request_heading"`
	AddedEvents          string `yaml:"added_events"`
	UnknownTags          string `yaml:"unknown_tags"`
}

func (t Templates) AddedEventsText(count int) string {
	return strings.ReplaceAll(t.AddedEvents, "{count}", strconv.Itoa(count))
}

func (t Templates) UnknownTagsText(tags []string) string {
	return strings.ReplaceAll(t.UnknownTags, "{tags}", strings.Join(tags, ", "))
}

func (t Templates) missing() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("knowledge_instruction", t.KnowledgeInstruction)
	check("planning_instruction", t.PlanningInstruction)
	check("resource_label", t.ResourceLabel)
	check("generic_source", t.GenericSource)
	check("added_events", t.AddedEvents)
	check("unknown_tags", t.UnknownTags)
	return missing
}

// Catalog maps each supported language to its templates.
type Catalog struct {
	templates map[lang.Code]Templates
}

func Load(data []byte) (*Catalog, error) {
	raw := map[string]Templates{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode prompt catalog: %w", err)
	}
	catalog := &Catalog{templates: map[lang.Code]Templates{}}
	for _, code := range lang.Supported() {
		tmpl, ok := raw[string(code)]
		if !ok {
			return nil, fmt.Errorf("prompt catalog missing language %q", code)
		}
		if missing := tmpl.missing(); len(missing) > 0 {
			return nil, fmt.Errorf("prompt catalog %q missing keys: %s", code, strings.Join(missing, ", "))
		}
		tmpl.KnowledgeInstruction = strings.TrimSpace(tmpl.KnowledgeInstruction)
		tmpl.PlanningInstruction = strings.TrimSpace(tmpl.PlanningInstruction)
		catalog.templates[code] = tmpl
	}
	return catalog, nil
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	return Load(data)
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	catalog, err := Load(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return catalog
}

// For resolves the templates of code, falling back to English.
func (c *Catalog) For(code lang.Code) Templates {
	if tmpl, ok := c.templates[code]; ok {
		return tmpl
	}
	return c.templates[lang.English]
}
