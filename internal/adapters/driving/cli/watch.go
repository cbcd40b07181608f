package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest PDFs as they appear in a directory",
	Long: `Watches a directory and ingests every PDF that is created or
rewritten in it. A rewritten file replaces the document previously
ingested from the same path. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	w := newPDFWatcher(dir, watchDebounce, func(ctx context.Context, path string) {
		replacePrevious(ctx, path)
		doc, err := ingestionService.Ingest(ctx, path)
		if err != nil {
			cmd.Printf("%s %s: %v\n", styled(cmd, errorStyle, "FAILED"), path, err)
			return
		}
		cmd.Printf("%s %s (%d pages, %d chunks, %d figures)\n",
			styled(cmd, idStyle, doc.ID), doc.Title, doc.PageCount, doc.ChunkCount, doc.FigureCount)
	})

	cmd.Printf("Watching %s for PDF files...\n", dir)
	return w.Run(commandContext(cmd))
}

// replacePrevious deletes documents ingested earlier from path.
func replacePrevious(ctx context.Context, path string) {
	if documentService == nil {
		return
	}
	docs, err := documentService.List(ctx)
	if err != nil {
		logger.Warn("watch: list documents: %v", err)
		return
	}
	for i := range docs {
		if docs[i].Path != path {
			continue
		}
		if err := documentService.Delete(ctx, docs[i].ID); err != nil {
			logger.Warn("watch: delete previous %s: %v", docs[i].ID, err)
			continue
		}
		logger.Info("Replaced previous ingest %s of %s", docs[i].ID, path)
	}
}

// pdfWatcher debounces filesystem events per file and hands settled PDF
// paths to ingest.
type pdfWatcher struct {
	dir      string
	debounce time.Duration
	ingest   func(ctx context.Context, path string)

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

func newPDFWatcher(dir string, debounce time.Duration, ingest func(context.Context, string)) *pdfWatcher {
	return &pdfWatcher{
		dir:      dir,
		debounce: debounce,
		ingest:   ingest,
		timers:   make(map[string]*time.Timer),
	}
}

// Run blocks until ctx is done. Ingestions in flight are awaited.
func (w *pdfWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Debug("watching %s", w.dir)

	defer w.wg.Wait()
	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if isPDF(ev.Name) && (ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				w.schedule(ctx, ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// schedule (re)starts the quiet period of path.
func (w *pdfWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, path)
	})
	w.timers[path] = t
}

func (w *pdfWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
