package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *ingestRecorder) ingest(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *ingestRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("/a/b/report.pdf"))
	assert.True(t, isPDF("REPORT.PDF"))
	assert.False(t, isPDF("notes.txt"))
	assert.False(t, isPDF("pdf"))
}

func TestPDFWatcher_DebouncesPerFile(t *testing.T) {
	rec := &ingestRecorder{}
	w := newPDFWatcher(t.TempDir(), 30*time.Millisecond, rec.ingest)
	ctx := context.Background()

	w.schedule(ctx, "a.pdf")
	w.schedule(ctx, "a.pdf")
	w.schedule(ctx, "a.pdf")
	w.schedule(ctx, "b.pdf")

	assert.Eventually(t, func() bool { return len(rec.seen()) == 2 }, 2*time.Second, 10*time.Millisecond)
	w.wg.Wait()
	time.Sleep(60 * time.Millisecond)
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, rec.seen())
}

func TestPDFWatcher_StopTimersReleasesWaiters(t *testing.T) {
	rec := &ingestRecorder{}
	w := newPDFWatcher(t.TempDir(), time.Hour, rec.ingest)

	w.schedule(context.Background(), "a.pdf")
	w.stopTimers()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait group not released")
	}
	assert.Empty(t, rec.seen())
}

func TestPDFWatcher_IngestsNewPDFs(t *testing.T) {
	dir := t.TempDir()
	rec := &ingestRecorder{}
	w := newPDFWatcher(dir, 10*time.Millisecond, rec.ingest)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	pdf := filepath.Join(dir, "report.pdf")
	txt := filepath.Join(dir, "notes.txt")
	// Keep writing until the watcher has been registered and fired.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(txt, []byte("x"), 0o600)
		_ = os.WriteFile(pdf, []byte("%PDF-1.4"), 0o600)
		return len(rec.seen()) > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	for _, p := range rec.seen() {
		assert.Equal(t, pdf, p)
	}
}

func TestPDFWatcher_MissingDir(t *testing.T) {
	w := newPDFWatcher(filepath.Join(t.TempDir(), "missing"), time.Millisecond, func(context.Context, string) {})

	err := w.Run(context.Background())

	assert.Error(t, err)
}

func TestRunWatch_StopsWithContext(t *testing.T) {
	setupTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetContext(ctx)

	err := runWatch(cmd, []string{t.TempDir()})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Watching ")
}

func TestReplacePrevious(t *testing.T) {
	ts := setupTestServices(t)

	replacePrevious(context.Background(), "/papers/wiring.pdf")

	assert.Equal(t, []string{testDocID}, ts.documents.deleted)
}
