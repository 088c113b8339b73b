package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetDefaultsToHighestVersion(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Register(&Template{Name: "greeting", Version: "1.0", Body: "hello {name}"})
	s.Register(&Template{Name: "greeting", Version: "2.0", Body: "hi {name}"})
	s.Register(&Template{Name: "greeting", Version: "1.5", Body: "hey {name}"})

	got, err := s.Get("greeting", "")
	require.NoError(t, err)
	assert.Equal(t, "2.0", got.Version)

	got, err = s.Get("greeting", "1.5")
	require.NoError(t, err)
	assert.Equal(t, "hey {name}", got.Body)
}

func TestGetErrors(t *testing.T) {
	s := NewStore(zap.NewNop())

	_, err := s.Get("no_such_template", "")
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	_, err = s.Get("domain_inference_basic", "99.0")
	assert.True(t, errors.Is(err, ErrVersionNotFound))
}

func TestRenderDomainInference(t *testing.T) {
	s := NewStore(zap.NewNop())
	out, err := s.Render("domain_inference_basic", map[string]any{
		"domains":         "technology, science",
		"query":           "explain X",
		"context_section": "",
	}, "")
	require.NoError(t, err)
	assert.Contains(t, out, "technology, science")
	assert.Contains(t, out, "explain X")
}

func TestRenderMissingVariable(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Register(&Template{Name: "needs_two", Version: "1.0", Body: "{alpha} and {beta}"})

	_, err := s.Render("needs_two", map[string]any{"alpha": "a"}, "")
	require.Error(t, err)
	var mv *MissingVariableError
	require.True(t, errors.As(err, &mv))
	assert.Equal(t, "beta", mv.Variable)
}

func TestRenderContextSection(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Register(&Template{Name: "ctx", Version: "1.0", Body: "Q: {query}{context_section}"})

	tests := []struct {
		name string
		vars map[string]any
		want func(t *testing.T, out string)
	}{
		{
			name: "absent context yields empty section",
			vars: map[string]any{"query": "q"},
			want: func(t *testing.T, out string) {
				assert.Equal(t, "Q: q", out)
			},
		},
		{
			name: "context synthesizes section",
			vars: map[string]any{"query": "q", "context": "user is a beginner"},
			want: func(t *testing.T, out string) {
				assert.Contains(t, out, "user is a beginner")
				assert.Contains(t, out, "Context:")
			},
		},
		{
			name: "explicit context_section wins",
			vars: map[string]any{"query": "q", "context": "ignored", "context_section": " CS"},
			want: func(t *testing.T, out string) {
				assert.Equal(t, "Q: q CS", out)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Render("ctx", tt.vars, "")
			require.NoError(t, err)
			tt.want(t, out)
		})
	}
}

func TestBuiltinCatalogComplete(t *testing.T) {
	s := NewStore(zap.NewNop())
	for _, name := range []string{
		"domain_inference_basic",
		"context_analysis",
		"cognitive_analysis",
		"memory_activation",
		"semantic_enhancement",
		"analogy_reasoning",
		"perspective_generation",
		"cognitive_challenge",
	} {
		_, err := s.Get(name, "")
		assert.NoError(t, err, "missing builtin %s", name)
	}
}

func TestLoadFileOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	yaml := strings.Join([]string{
		"templates:",
		"  - name: domain_inference_basic",
		"    version: \"2.0\"",
		"    template: \"DOMAINS={domains} QUERY={query}\"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	s := NewStore(zap.NewNop())
	n, err := s.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err := s.Render("domain_inference_basic", map[string]any{
		"domains": "art", "query": "paint",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "DOMAINS=art QUERY=paint", out)
}

func TestLoadDirMissingIsNotError(t *testing.T) {
	s := NewStore(zap.NewNop())
	n, err := s.LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.NoError(t, err)
	assert.Zero(t, n)
}
