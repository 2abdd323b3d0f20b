package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redactyl/labscrub/internal/logging"
	"github.com/redactyl/labscrub/internal/sanitize"
	"github.com/redactyl/labscrub/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWanted(t *testing.T) {
	cases := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/in/a.txt", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/in/a.TXT", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/in/a.txt", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/in/a.txt", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "/in/a.pdf", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/in/.a.txt", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/in/a_sanitized.txt", Op: fsnotify.Create}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, wanted(tc.ev), tc.ev.String())
	}
}

func TestNew_Errors(t *testing.T) {
	sink, err := store.NewFileSink(t.TempDir())
	require.NoError(t, err)

	_, err = New(Config{Dir: t.TempDir()})
	assert.Error(t, err)

	_, err = New(Config{Dir: filepath.Join(t.TempDir(), "missing"), Sink: sink})
	assert.Error(t, err)

	f := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))
	_, err = New(Config{Dir: f, Sink: sink})
	assert.Error(t, err)
}

func TestRun_SanitizesDroppedFiles(t *testing.T) {
	inbox := t.TempDir()
	sink, err := store.NewFileSink(inbox)
	require.NoError(t, err)

	var mu sync.Mutex
	var results []sanitize.Stats
	w, err := New(Config{
		Dir:      inbox,
		Debounce: 100 * time.Millisecond,
		Sink:     sink,
		Logger:   logging.Discard(),
		OnResult: func(st sanitize.Stats, err error) {
			assert.NoError(t, err)
			mu.Lock()
			results = append(results, st)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(inbox, "order.txt"), []byte("SSN: 123-45-6789\nTest: CBC\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "notes.md"), []byte("SSN: 123-45-6789\n"), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 1
	}, 5*time.Second, 10*time.Millisecond)

	got, err := os.ReadFile(filepath.Join(inbox, "order_sanitized.txt"))
	require.NoError(t, err)
	assert.Equal(t, "SSN: [REDACTED]\nTest: CBC\n", string(got))
	assert.NoFileExists(t, filepath.Join(inbox, "notes_sanitized.txt"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop")
	}

	// the output landing in the inbox must not be picked up again
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, results, 1)
	assert.Equal(t, "order.txt", results[0].Input)
}

func TestSanitizeFile_RejectsEmpty(t *testing.T) {
	inbox := t.TempDir()
	sink, err := store.NewFileSink(t.TempDir())
	require.NoError(t, err)
	w, err := New(Config{Dir: inbox, Sink: sink, Logger: logging.Discard()})
	require.NoError(t, err)
	defer w.close()

	p := filepath.Join(inbox, "empty.txt")
	require.NoError(t, os.WriteFile(p, nil, 0o600))
	_, err = w.sanitizeFile(context.Background(), p)
	assert.Error(t, err)

	_, err = w.sanitizeFile(context.Background(), filepath.Join(inbox, "gone.txt"))
	var re *sanitize.InputReadError
	assert.ErrorAs(t, err, &re)
}
