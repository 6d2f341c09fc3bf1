package playlist

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher rescans a music directory whenever audio files appear, vanish or
// are renamed, and publishes the new listing on Updates.
type Watcher struct {
	dir      string
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	updates  chan []Entry
	debounce time.Duration
}

func NewWatcher(dir string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		log:      log,
		watcher:  fw,
		updates:  make(chan []Entry, 1),
		debounce: 200 * time.Millisecond,
	}, nil
}

// Updates delivers fresh listings. Only the newest pending listing is kept.
func (w *Watcher) Updates() <-chan []Entry { return w.updates }

// Run processes filesystem events until ctx is done, then closes the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !IsAudioFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			w.log.Debug("music directory changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			pending = time.After(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.String("dir", w.dir), zap.Error(err))
		case <-pending:
			pending = nil
			entries, err := Scan(w.dir)
			if err != nil {
				w.log.Warn("rescan failed", zap.String("dir", w.dir), zap.Error(err))
				continue
			}
			w.publish(entries)
		}
	}
}

func (w *Watcher) publish(entries []Entry) {
	select {
	case <-w.updates:
	default:
	}
	w.updates <- entries
}
