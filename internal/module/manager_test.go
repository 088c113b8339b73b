package module

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProvider is a minimal Provider for registry tests.
type fakeProvider struct {
	name       string
	initOK     bool
	cleanupErr error
	processed  int
	cleaned    int
}

func (f *fakeProvider) Name() string                        { return f.name }
func (f *fakeProvider) Initialize(ctx context.Context) bool { return f.initOK }

func (f *fakeProvider) Process(ctx context.Context, input string, pctx map[string]any) (string, error) {
	f.processed++
	return "result:" + f.name, nil
}

func (f *fakeProvider) Cleanup(ctx context.Context) error {
	f.cleaned++
	return f.cleanupErr
}

func TestManagerRegisterFirstSuccessBecomesDefault(t *testing.T) {
	ctx := context.Background()
	m := NewManager[string, string](zap.NewNop())

	assert.False(t, m.Register(ctx, "broken", &fakeProvider{name: "broken", initOK: false}))
	assert.Empty(t, m.DefaultName())

	assert.True(t, m.Register(ctx, "first", &fakeProvider{name: "first", initOK: true}))
	assert.True(t, m.Register(ctx, "second", &fakeProvider{name: "second", initOK: true}))
	assert.Equal(t, "first", m.DefaultName())
	assert.Equal(t, []string{"first", "second"}, m.Names())
}

func TestManagerProcess(t *testing.T) {
	ctx := context.Background()
	m := NewManager[string, string](zap.NewNop())
	require.True(t, m.Register(ctx, "a", &fakeProvider{name: "a", initOK: true}))
	require.True(t, m.Register(ctx, "b", &fakeProvider{name: "b", initOK: true}))

	out, err := m.Process(ctx, "in", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "result:a", out)

	out, err = m.Process(ctx, "in", "b", nil)
	require.NoError(t, err)
	assert.Equal(t, "result:b", out)

	_, err = m.Process(ctx, "in", "missing", nil)
	assert.True(t, errors.Is(err, ErrProviderNotFound))
}

func TestManagerProcessEmptyRegistry(t *testing.T) {
	m := NewManager[string, string](zap.NewNop())
	_, err := m.Process(context.Background(), "in", "", nil)
	assert.True(t, errors.Is(err, ErrProviderNotFound))
}

func TestManagerCleanupSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	m := NewManager[string, string](zap.NewNop())

	bad := &fakeProvider{name: "bad", initOK: true, cleanupErr: errors.New("boom")}
	good := &fakeProvider{name: "good", initOK: true}
	require.True(t, m.Register(ctx, "bad", bad))
	require.True(t, m.Register(ctx, "good", good))

	m.Cleanup(ctx)

	assert.Equal(t, 1, bad.cleaned)
	assert.Equal(t, 1, good.cleaned)
	assert.False(t, m.HasProviders())
	assert.Empty(t, m.DefaultName())

	_, err := m.Process(ctx, "in", "", nil)
	assert.True(t, errors.Is(err, ErrProviderNotFound))
}
