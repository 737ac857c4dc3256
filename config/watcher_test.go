package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_RequiresPath(t *testing.T) {
	_, err := NewWatcher("", NewLoader())
	require.Error(t, err)
}

func TestWatcher_PublishesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	w, err := NewWatcher(path, NewLoader(), WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var got []*Config
	_, err = w.Updates().Subscribe(func(cfg *Config) error {
		mu.Lock()
		got = append(got, cfg)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	require.Eventually(t, w.IsRunning, time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 1
	}, 3*time.Second, 20*time.Millisecond, "expected reload broadcast")

	mu.Lock()
	assert.Equal(t, "error", got[len(got)-1].Log.Level)
	mu.Unlock()

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_InvalidReloadNotPublished(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	w, err := NewWatcher(path, NewLoader(), WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	published := 0
	_, err = w.Updates().Subscribe(func(*Config) error {
		mu.Lock()
		published++
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx) }()
	require.Eventually(t, w.IsRunning, time.Second, 10*time.Millisecond)

	// An invalid level fails validation; the broken config must not be
	// broadcast.
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))

	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, published)
	mu.Unlock()
}

func TestWatcher_DoubleWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	w, err := NewWatcher(path, NewLoader())
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx) }()
	require.Eventually(t, w.IsRunning, time.Second, 10*time.Millisecond)

	require.Error(t, w.Watch(ctx))
}

func TestWatcher_ConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, path, w.ConfigPath())
	assert.Equal(t, "config.reload", w.Updates().Name())
}
