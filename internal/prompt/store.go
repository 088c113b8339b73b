// Package prompt holds the versioned template store used by the module
// providers. Templates are keyed by name, carry version strings, and are
// rendered against a variable map. Built-in templates can be overridden
// from YAML files at runtime.
package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrTemplateNotFound is returned when no template has the requested name.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrVersionNotFound is returned when the named template has no such version.
	ErrVersionNotFound = errors.New("template version not found")
)

// MissingVariableError reports a template variable absent from the input map.
type MissingVariableError struct {
	Template string
	Variable string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %q: missing variable %q", e.Template, e.Variable)
}

// Template is one versioned prompt template.
type Template struct {
	Name        string         `yaml:"name" json:"name"`
	Version     string         `yaml:"version" json:"version"`
	Body        string         `yaml:"template" json:"template"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Variables   []string       `yaml:"variables,omitempty" json:"variables,omitempty"`
	Category    string         `yaml:"category,omitempty" json:"category,omitempty"`
	Temperature float64        `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int            `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Placeholders returns the variable names referenced by the template body.
func (t *Template) Placeholders() []string {
	matches := placeholderRe.FindAllStringSubmatch(t.Body, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Store is a registry of versioned templates. Registration happens during
// setup; renders are read-only and safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	templates map[string]map[string]*Template
	logger    *zap.Logger
}

// NewStore returns a store preloaded with the built-in template catalog.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		templates: map[string]map[string]*Template{},
		logger:    logger,
	}
	for _, t := range builtinTemplates() {
		s.Register(t)
	}
	return s
}

// Register adds or replaces a template version.
func (s *Store) Register(t *Template) {
	if t.Version == "" {
		t.Version = "1.0"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	versions, ok := s.templates[t.Name]
	if !ok {
		versions = map[string]*Template{}
		s.templates[t.Name] = versions
	}
	versions[t.Version] = t
}

// Get returns the named template. An empty version selects the highest
// version string.
func (s *Store) Get(name, version string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.templates[name]
	if !ok || len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if version == "" {
		version = latestVersion(versions)
	}
	t, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s@%s", ErrVersionNotFound, name, version)
	}
	return t, nil
}

// Names lists registered template names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render substitutes variables into the named template. A template may
// reference a context_section variable that is synthesized from a raw
// "context" variable when present and defaults to the empty string; it is
// the only implicit variable. Any other placeholder absent from vars
// fails with MissingVariableError. Surplus input variables and unused
// declared variables are logged, not errors.
func (s *Store) Render(name string, vars map[string]any, version string) (string, error) {
	t, err := s.Get(name, version)
	if err != nil {
		return "", err
	}

	resolved := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		resolved[k] = v
	}
	if _, ok := resolved["context_section"]; !ok {
		resolved["context_section"] = contextSection(resolved["context"])
	}

	placeholders := t.Placeholders()
	s.logMismatches(t, placeholders, resolved)

	out := t.Body
	for _, ph := range placeholders {
		v, ok := resolved[ph]
		if !ok {
			return "", &MissingVariableError{Template: name, Variable: ph}
		}
		out = strings.ReplaceAll(out, "{"+ph+"}", fmt.Sprintf("%v", v))
	}
	return out, nil
}

func (s *Store) logMismatches(t *Template, placeholders []string, vars map[string]any) {
	used := map[string]bool{}
	for _, ph := range placeholders {
		used[ph] = true
	}
	for k := range vars {
		if !used[k] && k != "context" && k != "context_section" {
			s.logger.Debug("template ignores input variable",
				zap.String("template", t.Name),
				zap.String("variable", k))
		}
	}
	for _, declared := range t.Variables {
		if _, ok := vars[declared]; !ok && declared != "context_section" {
			s.logger.Warn("declared template variable not supplied",
				zap.String("template", t.Name),
				zap.String("variable", declared))
		}
	}
}

func contextSection(ctx any) string {
	if ctx == nil {
		return ""
	}
	str := fmt.Sprintf("%v", ctx)
	if strings.TrimSpace(str) == "" {
		return ""
	}
	return fmt.Sprintf("\nContext:\n%s\n", str)
}

// latestVersion picks the highest version by numeric dotted comparison,
// falling back to string ordering for non-numeric segments.
func latestVersion(versions map[string]*Template) string {
	keys := make([]string, 0, len(versions))
	for v := range versions {
		keys = append(keys, v)
	}
	sort.Slice(keys, func(i, j int) bool { return versionLess(keys[i], keys[j]) })
	return keys[len(keys)-1]
}

func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		var an, bn int
		_, errA := fmt.Sscanf(as[i], "%d", &an)
		_, errB := fmt.Sscanf(bs[i], "%d", &bn)
		if errA != nil || errB != nil {
			if as[i] != bs[i] {
				return as[i] < bs[i]
			}
			continue
		}
		if an != bn {
			return an < bn
		}
	}
	return len(as) < len(bs)
}
