package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redactyl/labscrub/internal/logging"
	"github.com/redactyl/labscrub/internal/metrics"
	"github.com/redactyl/labscrub/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff time.Time
	n      int
	err    error
}

func (f *fakePruner) Prune(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

func TestRunOnce_UsesRetentionWindow(t *testing.T) {
	p := &fakePruner{n: 2}
	s := NewScheduler(Config{Retention: 24 * time.Hour, Schedule: "0 3 * * *"}, p, nil, logging.Discard())
	now := time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoff)
}

func TestRunOnce_Error(t *testing.T) {
	p := &fakePruner{err: errors.New("locked")}
	s := NewScheduler(Config{Retention: time.Hour, Schedule: "@hourly"}, p, metrics.NewCollector(prometheus.NewRegistry()), logging.Discard())
	_, err := s.RunOnce(context.Background())
	assert.EqualError(t, err, "locked")
}

func TestStart_Disabled(t *testing.T) {
	for _, cfg := range []Config{{}, {Retention: time.Hour}, {Schedule: "@hourly"}} {
		s := NewScheduler(cfg, &fakePruner{}, nil, logging.Discard())
		require.NoError(t, s.Start(context.Background()))
		assert.False(t, s.IsRunning())
		assert.Nil(t, s.NextRun())
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(Config{Retention: time.Hour, Schedule: "not a cron"}, &fakePruner{}, nil, logging.Discard())
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestStart_StopsWithContext(t *testing.T) {
	s := NewScheduler(Config{Retention: time.Hour, Schedule: "0 3 * * *"}, &fakePruner{}, nil, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	require.NotNil(t, s.NextRun())
	assert.True(t, s.NextRun().After(time.Now()))
	assert.Error(t, s.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestRunOnce_PrunesFileStore(t *testing.T) {
	dir := t.TempDir()
	sink, err := store.NewFileSink(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, sink.Save(ctx, "old_sanitized.txt", "x\n"))
	require.NoError(t, sink.Save(ctx, "new_sanitized.txt", "y\n"))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old_sanitized.txt"), old, old))

	s := NewScheduler(Config{Retention: 24 * time.Hour, Schedule: "@daily"}, sink, nil, logging.Discard())
	n, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, filepath.Join(dir, "old_sanitized.txt"))
	assert.FileExists(t, filepath.Join(dir, "new_sanitized.txt"))
}
