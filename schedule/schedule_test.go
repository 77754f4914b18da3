package schedule

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/errors"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func noopJob(context.Context, time.Time) error { return nil }

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(config.ScheduleConfig{Cron: "not a cron"}, noopJob, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")

	_, err = New(config.ScheduleConfig{Cron: "0 8 3 * *", Timezone: "Mars/Olympus"}, noopJob, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timezone")
}

func TestNextHonorsTimezone(t *testing.T) {
	athens, err := time.LoadLocation("Europe/Athens")
	require.NoError(t, err)

	// The default schedule: 08:00 on the 3rd, Athens time.
	r, err := New(config.ScheduleConfig{Cron: "0 8 3 * *", Timezone: "Europe/Athens"}, noopJob, testLogger())
	require.NoError(t, err)

	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	next := r.Next(now)
	assert.True(t, next.Equal(time.Date(2026, 8, 3, 8, 0, 0, 0, athens)),
		"next = %s", next)
}

func TestNextAcceptsDescriptors(t *testing.T) {
	r, err := New(config.ScheduleConfig{Cron: "@monthly"}, noopJob, testLogger())
	require.NoError(t, err)

	now := time.Date(2026, 7, 10, 12, 30, 0, 0, time.UTC)
	next := r.Next(now)
	assert.True(t, next.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),
		"next = %s", next)
}

func TestStartStop(t *testing.T) {
	r, err := New(config.ScheduleConfig{Cron: "0 8 3 * *"}, noopJob, testLogger())
	require.NoError(t, err)

	r.Start()
	time.Sleep(20 * time.Millisecond)

	// Stop must return promptly even with the timer armed days out.
	r.Stop()
}

func TestRearm(t *testing.T) {
	r, err := New(config.ScheduleConfig{Cron: "0 8 3 * *"}, noopJob, testLogger())
	require.NoError(t, err)

	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	before := r.Next(now)

	require.NoError(t, r.Rearm(config.ScheduleConfig{Cron: "0 9 * * *"}))
	after := r.Next(now)
	assert.False(t, before.Equal(after))
	assert.True(t, after.Equal(time.Date(2026, 7, 11, 9, 0, 0, 0, time.UTC)),
		"next = %s", after)

	// A bad rearm is rejected and leaves the previous schedule armed.
	require.Error(t, r.Rearm(config.ScheduleConfig{Cron: "garbage"}))
	assert.True(t, r.Next(now).Equal(after))
}

func TestRunOnceRunsPostHook(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "hook_ran")

	called := false
	r, err := New(config.ScheduleConfig{
		Cron:     "0 8 3 * *",
		PostHook: "touch " + marker,
	}, func(ctx context.Context, fired time.Time) error {
		called = true
		return nil
	}, testLogger())
	require.NoError(t, err)

	r.runOnce(time.Now())
	assert.True(t, called)
	assert.FileExists(t, marker)
}

func TestRunOnceSkipsPostHookOnFailure(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "hook_ran")

	r, err := New(config.ScheduleConfig{
		Cron:     "0 8 3 * *",
		PostHook: "touch " + marker,
	}, func(ctx context.Context, fired time.Time) error {
		return errors.New("window failed")
	}, testLogger())
	require.NoError(t, err)

	r.runOnce(time.Now())
	assert.NoFileExists(t, marker)
}

func TestPostHookFailureIsNotFatal(t *testing.T) {
	// Unparseable hook: logged, not fatal.
	r, err := New(config.ScheduleConfig{
		Cron:     "0 8 3 * *",
		PostHook: "unterminated 'quote",
	}, noopJob, testLogger())
	require.NoError(t, err)
	r.runOnce(time.Now())

	// Missing binary: logged, not fatal.
	r, err = New(config.ScheduleConfig{
		Cron:     "0 8 3 * *",
		PostHook: "/nonexistent/diavgest-post-hook",
	}, noopJob, testLogger())
	require.NoError(t, err)
	r.runOnce(time.Now())
}
