package templates

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template keys used by the workflow
const (
	KeyAssignmentCreated          = "assignment_created"
	KeyAssignmentOverdue          = "assignment_overdue"
	KeyReviewAccepted             = "review_accepted"
	KeyReviewRejected             = "review_rejected"
	KeyProjectTranslationAccepted = "project_translation_accepted"
	KeyProjectTranslationRejected = "project_translation_rejected"
	KeyTranslationRejected        = "translation_rejected"
)

//go:embed defaults.yaml
var defaultTemplates []byte

// Template is a notification title/message pair
type Template struct {
	Key     string `yaml:"key" json:"key"`
	Title   string `yaml:"title" json:"title"`
	Message string `yaml:"message" json:"message"`
}

// Data is the value templates are rendered with
type Data struct {
	ProjectName       string
	LanguageCode      string
	Role              string
	Deadline          string
	ParagraphPosition int
	Comments          string
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

type compiled struct {
	source  Template
	title   *template.Template
	message *template.Template
}

// Loader manages loading and caching of notification templates
type Loader struct {
	mu        sync.RWMutex
	templates map[string]*compiled
}

// NewLoader creates an empty template loader
func NewLoader() *Loader {
	return &Loader{
		templates: make(map[string]*compiled),
	}
}

// NewDefaultLoader creates a loader holding the built-in templates
func NewDefaultLoader() (*Loader, error) {
	l := NewLoader()
	if err := l.load(defaultTemplates, "defaults.yaml"); err != nil {
		return nil, err
	}
	return l, nil
}

// LoadFromDir loads all YAML files in dir, overriding templates with the same key
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading notification templates from directory", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load templates", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("notification templates loaded", "files", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads templates from a single YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return l.load(data, filepath.Base(path))
}

func (l *Loader) load(data []byte, origin string) error {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML %s: %w", origin, err)
	}

	parsed := make([]*compiled, 0, len(file.Templates))
	for _, t := range file.Templates {
		if t.Key == "" {
			return fmt.Errorf("%s: template key is required", origin)
		}
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("%s: template %s has no title", origin, t.Key)
		}

		title, err := template.New(t.Key + ".title").Option("missingkey=error").Parse(t.Title)
		if err != nil {
			return fmt.Errorf("%s: template %s title: %w", origin, t.Key, err)
		}
		message, err := template.New(t.Key + ".message").Option("missingkey=error").Parse(t.Message)
		if err != nil {
			return fmt.Errorf("%s: template %s message: %w", origin, t.Key, err)
		}

		parsed = append(parsed, &compiled{source: t, title: title, message: message})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range parsed {
		l.templates[c.source.Key] = c
	}

	return nil
}

// Get returns a template by key
func (l *Loader) Get(key string) *Template {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.templates[key]
	if !ok {
		return nil
	}
	t := c.source
	return &t
}

// List returns all templates sorted by key
func (l *Loader) List() []*Template {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Template, 0, len(l.templates))
	for _, c := range l.templates {
		t := c.source
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Render renders the title and message of the template key
func (l *Loader) Render(key string, data Data) (string, string, error) {
	l.mu.RLock()
	c, ok := l.templates[key]
	l.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("unknown notification template %q", key)
	}

	var title, message strings.Builder
	if err := c.title.Execute(&title, data); err != nil {
		return "", "", fmt.Errorf("render %s title: %w", key, err)
	}
	if err := c.message.Execute(&message, data); err != nil {
		return "", "", fmt.Errorf("render %s message: %w", key, err)
	}

	return title.String(), message.String(), nil
}
