package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"student_records/internal/config"
	"student_records/pkg/logger"
)

const DefaultDebounce = time.Second

// Watch calls reload once writes to path have settled for debounce. The
// parent directory is watched so that editors replacing the file by rename
// are seen too. It returns when ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, reload func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	timer := time.NewTimer(0)
	<-timer.C

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				// debounce
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
		case <-timer.C:
			reload(absPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("File watcher error", zap.String("path", absPath), zap.Error(err))
		}
	}
}

// WatchConfig reloads config.yaml from dir on change and hands the new
// configuration to onReload.
func WatchConfig(ctx context.Context, dir string, onReload func(*config.Config)) error {
	return Watch(ctx, filepath.Join(dir, "config.yaml"), DefaultDebounce, func(string) {
		cfg, err := config.LoadConfig(dir)
		if err != nil {
			logger.Log.Error("Failed to reload config", zap.Error(err))
			return
		}
		onReload(cfg)
	})
}
