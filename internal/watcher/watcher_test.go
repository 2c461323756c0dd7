package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestEventTypeFromOp(t *testing.T) {
	assert.Equal(t, EventTypeCreated, eventType(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, EventTypeModified, eventType(fsnotify.Write))
	assert.Equal(t, EventTypeDeleted, eventType(fsnotify.Remove))
	assert.Equal(t, EventTypeRenamed, eventType(fsnotify.Rename))
	assert.Equal(t, EventTypeModified, eventType(fsnotify.Chmod))
}

func TestAddFile(t *testing.T) {
	fw, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.html")
	b := filepath.Join(dir, "b.html")

	require.NoError(t, fw.AddFile(a))
	require.NoError(t, fw.AddFile(b))
	require.NoError(t, fw.AddFile(""))

	assert.Equal(t, []string{a, b}, fw.Files())
	assert.Len(t, fw.dirs, 1)

	assert.True(t, fw.tracked(a))
	assert.False(t, fw.tracked(filepath.Join(dir, "other.html")))

	fw.AddFilter(ExtFilter(".css"))
	assert.False(t, fw.tracked(a))
}

func TestAddFileMissingDirectory(t *testing.T) {
	fw, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	err = fw.AddFile(filepath.Join(t.TempDir(), "missing", "a.html"))
	assert.Error(t, err)
}

func TestDebouncerDeduplicates(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)

	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "b.html"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.html"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.html"})

	select {
	case events := <-d.output:
		require.Len(t, events, 2)
		assert.Equal(t, "a.html", events[0].Path)
		assert.Equal(t, "b.html", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestDebouncerFlushEmpty(t *testing.T) {
	d := newDebouncer(time.Millisecond)
	d.flush()

	select {
	case <-d.output:
		t.Fatal("unexpected flush")
	default:
	}
}

func TestFileWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "fragment.html")
	require.NoError(t, os.WriteFile(target, []byte("<p>{{a}}</p>"), 0o600))

	fw, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()
	require.NoError(t, fw.AddFile(target))
	fw.AddFilter(NoHiddenFilter)

	var (
		mu   sync.Mutex
		seen []string
	)
	fw.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			seen = append(seen, e.Path)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.html"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(target, []byte("<p>{{b}}</p>"), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		assert.Equal(t, target, p)
	}
}

func TestFilters(t *testing.T) {
	html := ExtFilter(".html", ".HTM")
	assert.True(t, html("/x/a.html"))
	assert.True(t, html("/x/a.htm"))
	assert.False(t, html("/x/a.yml"))

	assert.True(t, NoHiddenFilter("/x/a.html"))
	assert.False(t, NoHiddenFilter("/x/.a.html.swp"))
}
