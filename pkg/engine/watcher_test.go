package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasquatch989/mockingj/pkg/resolver"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(petstore), 0o600))

	e, _ := newTestEngine(t, WithLoader(FileLoader(path, resolver.Options{})))
	require.Len(t, e.GetEndpoints(), 4)

	w, err := NewWatcher(e, path, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("x"), 0o600))

	updated := strings.Replace(petstore, "paths:\n", "paths:\n"+strings.TrimPrefix(extraEndpoint, "\n"), 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		return len(e.GetEndpoints()) == 5
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_KeepsGraphOnBrokenWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(petstore), 0o600))

	e, _ := newTestEngine(t, WithLoader(FileLoader(path, resolver.Options{})))
	before := e.Graph()

	w, err := NewWatcher(e, path, 10*time.Millisecond)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("openapi: [broken"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Same(t, before, e.Graph())

	cancel()
	require.NoError(t, <-done)
	assert.NoError(t, w.Close())
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := NewWatcher(e, filepath.Join(t.TempDir(), "missing", "openapi.yaml"), 0)
	assert.Error(t, err)
}
