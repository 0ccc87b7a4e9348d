package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates(t *testing.T) {
	loader, err := NewDefaultLoader()
	require.NoError(t, err)

	for _, key := range []string{
		KeyAssignmentCreated,
		KeyAssignmentOverdue,
		KeyReviewAccepted,
		KeyReviewRejected,
		KeyProjectTranslationAccepted,
		KeyProjectTranslationRejected,
		KeyTranslationRejected,
	} {
		assert.NotNil(t, loader.Get(key), "missing default template %s", key)
	}

	title, message, err := loader.Render(KeyProjectTranslationAccepted, Data{
		ProjectName:       "Guide",
		LanguageCode:      "fr",
		ParagraphPosition: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "تم اعتماد الترجمة", title)
	assert.Contains(t, message, "Guide")
	assert.Contains(t, message, "10")
}

func TestRenderOptionalSections(t *testing.T) {
	loader, err := NewDefaultLoader()
	require.NoError(t, err)

	_, withComments, err := loader.Render(KeyTranslationRejected, Data{ProjectName: "Guide", Comments: "tone"})
	require.NoError(t, err)
	assert.Contains(t, withComments, "tone")

	_, noDeadline, err := loader.Render(KeyAssignmentCreated, Data{ProjectName: "Guide", Role: "Translator"})
	require.NoError(t, err)
	assert.NotContains(t, noDeadline, "حتى")
}

func TestRenderUnknownKey(t *testing.T) {
	_, _, err := NewLoader().Render("nope", Data{})
	assert.Error(t, err)
}

func TestLoadFromDirOverrides(t *testing.T) {
	dir := t.TempDir()
	override := []byte(`
templates:
  - key: assignment_created
    title: "New task"
    message: "{{.ProjectName}} / {{.LanguageCode}}"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), override, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("templates: [ {key: x"), 0o644))

	loader, err := NewDefaultLoader()
	require.NoError(t, err)
	require.NoError(t, loader.LoadFromDir(dir))

	title, message, err := loader.Render(KeyAssignmentCreated, Data{ProjectName: "Guide", LanguageCode: "de"})
	require.NoError(t, err)
	assert.Equal(t, "New task", title)
	assert.Equal(t, "Guide / de", message)

	// untouched keys keep their defaults
	assert.Equal(t, "مهمة متأخرة", loader.Get(KeyAssignmentOverdue).Title)
}

func TestLoadRejectsInvalidTemplates(t *testing.T) {
	loader := NewLoader()
	assert.Error(t, loader.load([]byte("templates:\n  - title: x\n"), "t.yaml"))
	assert.Error(t, loader.load([]byte("templates:\n  - key: a\n    title: \"{{.Nope\"\n"), "t.yaml"))
	assert.Error(t, loader.load([]byte("templates:\n  - key: a\n"), "t.yaml"))
	assert.Empty(t, loader.List())
}
