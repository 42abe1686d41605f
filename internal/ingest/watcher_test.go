package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidate(t *testing.T) {
	cases := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"create pdf", fsnotify.Event{Name: "/in/a.pdf", Op: fsnotify.Create}, true},
		{"write hwp", fsnotify.Event{Name: "/in/a.HWP", Op: fsnotify.Write}, true},
		{"remove", fsnotify.Event{Name: "/in/a.pdf", Op: fsnotify.Remove}, false},
		{"rename old name", fsnotify.Event{Name: "/in/a.pdf", Op: fsnotify.Rename}, false},
		{"chmod", fsnotify.Event{Name: "/in/a.pdf", Op: fsnotify.Chmod}, false},
		{"unsupported", fsnotify.Event{Name: "/in/a.txt", Op: fsnotify.Create}, false},
		{"hidden", fsnotify.Event{Name: "/in/.a.pdf", Op: fsnotify.Create}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := candidate(tc.ev, true)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.docx")
	require.NoError(t, os.WriteFile(existing, []byte("PK\x03\x04"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, SkipHidden: true, Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	assert.Equal(t, existing, next(t, events))

	created := filepath.Join(root, "new.pdf")
	require.NoError(t, os.WriteFile(created, []byte("%PDF-1.4"), 0o600))
	assert.Equal(t, created, next(t, events))

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
