package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keyring-Network/keyring-notes/internal/lang"
)

func TestDefault_HasBothLanguages(t *testing.T) {
	catalog := Default()
	en := catalog.For(lang.English)
	pl := catalog.For(lang.Polish)

	assert.Contains(t, en.PlanningInstruction, `"action":"add_events"`)
	assert.Contains(t, pl.PlanningInstruction, `"action":"add_events"`)
	assert.NotEqual(t, en.KnowledgeInstruction, pl.KnowledgeInstruction)
	assert.Equal(t, "Note", en.GenericSource)
}

func TestFor_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	catalog := Default()
	assert.Equal(t, catalog.For(lang.English), catalog.For(lang.Code("de")))
}

func TestTemplates_Placeholders(t *testing.T) {
	en := Default().For(lang.English)
	assert.Equal(t, "Added 3 event(s).", en.AddedEventsText(3))
	assert.Equal(t, "These tags are not in your tag list yet: gym, deep work. Do you want to add them?", en.UnknownTagsText([]string{"gym", "deep work"}))
}

func TestLoad_MissingLanguage(t *testing.T) {
	_, err := Load([]byte("en:\n  knowledge_instruction: x\n"))
	require.Error(t, err)
}

func TestLoad_MissingKeys(t *testing.T) {
	doc := `
en:
  knowledge_instruction: k
pl:
  knowledge_instruction: k
`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planning_instruction")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load([]byte("en: ["))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, defaultCatalog, 0o600))

	catalog, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().For(lang.Polish), catalog.For(lang.Polish))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
