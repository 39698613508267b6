package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"datalink/internal/domain"
	"datalink/internal/errs"
	"datalink/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// FileKV stores each key as <dir>/<key>.json. Files may be edited by hand;
// Watch reports such edits.
type FileKV struct {
	dir string
	mu  sync.Mutex
}

// NewFileKV creates a FileKV rooted at dir, creating the directory if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

var _ domain.KeyValueStore = (*FileKV)(nil)

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileKV) GetValue(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.OperationFailed("read setting", err)
	}
	return string(data), true, nil
}

func (f *FileKV) PutValue(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, "."+key+"-*")
	if err != nil {
		return errs.OperationFailed("write setting", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errs.OperationFailed("write setting", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errs.OperationFailed("write setting", err)
	}
	return errs.OperationFailed("write setting", os.Rename(tmp.Name(), f.path(key)))
}

func (f *FileKV) DeleteValue(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errs.OperationFailed("delete setting", err)
}

// Watch calls onChange with the key of every file that is written, created
// or removed, debounced per key. It blocks until ctx is cancelled.
func (f *FileKV) Watch(ctx context.Context, log *logger.Logger, onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.dir); err != nil {
		return fmt.Errorf("watch %s: %w", f.dir, err)
	}
	log.With().Str("dir", f.dir).Logger().Debug("settings watcher started")

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			base := filepath.Base(event.Name)
			if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ".json") {
				continue
			}
			key := strings.TrimSuffix(base, ".json")
			if t, exists := timers[key]; exists {
				t.Stop()
			}
			timers[key] = time.AfterFunc(200*time.Millisecond, func() { onChange(key) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WarnWith("settings watcher error", err, nil)
		}
	}
}
