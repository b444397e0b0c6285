package watch_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/m2t/internal/ctxlog"
	"github.com/vk/m2t/internal/watch"
)

func TestWatcherFiresOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.m2t")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w, err := watch.New(watch.Config{Path: path, DebounceDelay: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	var calls int32
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	ctx = ctxlog.WithLogger(ctx, slog.Default())

	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx, func() error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("y"), 0o644))

	<-done
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}
