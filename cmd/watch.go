package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/pgrename/formatter"
	"github.com/gnolang/pgrename/obfuscate"
)

// settle is how long to wait after a change so that several writes from
// one save are handled once.
const settle = 100 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [container]",
	Short: "Re-check the rules whenever a rule file or the container changes",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadRunConfig(cmd.Flags(), args)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		check := func() {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			res, _, err := obfuscate.New(logger).Plan(cctx, cfg)
			if err != nil {
				if d, ok := formatter.FromError(err); ok {
					fmt.Fprint(os.Stderr, formatter.Format([]formatter.Diagnostic{d}, formatter.Sources([]formatter.Diagnostic{d})))
					return
				}
				logger.Error("Check failed", zap.Error(err))
				return
			}
			printDiagnostics(res)
			fmt.Println(ruleTable(res))
			fmt.Println(res.Summary())
		}

		check()
		if err := watchFiles(ctx, watchedFiles(cfg), check); err != nil {
			logger.Fatal("Watch failed", zap.Error(err))
		}
	},
}

func init() {
	addPipelineFlags(watchCmd.Flags())
}

// watchedFiles lists the absolute paths whose changes trigger a check.
func watchedFiles(cfg *obfuscate.Config) map[string]bool {
	files := make(map[string]bool)
	add := func(p string) {
		if p == "" {
			return
		}
		if abs, err := filepath.Abs(p); err == nil {
			files[abs] = true
		}
	}
	add(cfg.Input)
	for _, r := range cfg.Rules {
		add(r)
	}
	add(cfg.Mapping.Apply)
	return files
}

// watchFiles calls onChange after any of files is written, created or
// renamed, until ctx is done. Directories are watched rather than the files
// themselves so that editors that replace files on save are seen.
func watchFiles(ctx context.Context, files map[string]bool, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dirs := make(map[string]bool)
	for f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(event, files) {
				continue
			}
			logger.Debug("Change detected", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			onChange()
		}
	}
}

func relevant(event fsnotify.Event, files map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return files[abs]
}
