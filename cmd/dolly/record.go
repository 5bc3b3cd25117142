package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/dolly"
	"github.com/teranos/dolly/stage"
	"github.com/teranos/dolly/take"
)

var (
	recordOut     string
	recordFilter  []string
	recordExclude []string
	recordWatch   bool
)

var recordCmd = &cobra.Command{
	Use:   "record <set.yaml>",
	Short: "Record a stage set into a take file",
	Long: `Record loads a set file, sweeps the stage once, and appends the rows
to a take file. With --watch the set is re-recorded on every save,
each sweep stamped on a "revision" sequence timeline so the revisions
can be scrubbed like frames.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "Take file to write (default: <set>.jsonl)")
	recordCmd.Flags().StringSliceVar(&recordFilter, "filter", nil, "Only visit prim paths matching these patterns")
	recordCmd.Flags().StringSliceVar(&recordExclude, "exclude", nil, "Skip prim paths matching these patterns")
	recordCmd.Flags().BoolVar(&recordWatch, "watch", false, "Keep watching the set file and re-record on change")
}

func runRecord(cmd *cobra.Command, args []string) error {
	setPath := args[0]
	out := recordOut
	if out == "" {
		out = strings.TrimSuffix(setPath, filepath.Ext(setPath)) + ".jsonl"
	}

	stream, err := take.Resolve(nil, out, baseName(setPath), take.WithLogger(logger))
	if err != nil {
		return err
	}
	defer stream.Close()

	if !recordWatch {
		if err := recordOnce(setPath, stream); err != nil {
			return err
		}
		fmt.Printf("🎬 Recorded %s -> %s (%d rows)\n", setPath, out, stream.RowsLogged())
		return nil
	}
	return watchSet(setPath, out, stream)
}

// recordOnce loads the set fresh and sweeps the whole stage onto stream.
func recordOnce(setPath string, stream *take.Stream) error {
	st, err := stage.LoadSetFile(setPath)
	if err != nil {
		return err
	}
	rec, err := dolly.NewStageLogger(st, stream, dolly.StageLoggerConfig{
		Include: recordFilter,
		Exclude: recordExclude,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if err := rec.LogStage(); err != nil {
		return err
	}
	if rec.Glitches().HasGlitches() {
		fmt.Print(rec.Glitches().DetailedReport())
	}
	return rec.Stop()
}

// watchSet re-records the set on every save. Each sweep runs on a fresh
// stage and logger so removed prims simply disappear from the new revision,
// while the shared stream keeps all revisions in one take.
func watchSet(setPath, out string, stream *take.Stream) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// watches added on the file itself.
	dir := filepath.Dir(setPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	revision := int64(0)
	record := func() {
		if err := stream.SetSequence("revision", revision); err != nil {
			logger.Error("stamp revision", zap.Error(err))
			return
		}
		if err := recordOnce(setPath, stream); err != nil {
			logger.Error("record set", zap.String("set", setPath), zap.Error(err))
			return
		}
		fmt.Printf("🎬 revision %d -> %s (%d rows total)\n", revision, out, stream.RowsLogged())
		revision++
	}
	record()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			fmt.Println("stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(setPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Debounce rapid saves
			pending = time.After(200 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			record()
		}
	}
}
