package livereload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/userapi/pkg/logger"
)

// ErrWatch reports a watcher setup failure.
var ErrWatch = errors.New("live reload watch failed")

// Watch broadcasts a reload whenever a file in one of dirs changes. Bursts
// of events are coalesced. Setup errors are returned; the watch itself runs
// in the background until ctx ends or the Reloader is closed.
func (r *Reloader) Watch(ctx context.Context, dirs ...string) error {
	if len(dirs) == 0 {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatch, err)
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("%w: %s: %w", ErrWatch, dir, err)
		}
	}
	r.log.Info(ctx, "watching for live reload", logger.Any("dirs", dirs))

	go r.watchLoop(ctx, w)
	return nil
}

func (r *Reloader) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	timer := time.NewTimer(r.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			r.log.Debug(ctx, "watched file changed", logger.String("path", ev.Name), logger.String("op", ev.Op.String()))
			timer.Reset(r.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Warn(ctx, "live reload watcher error", logger.Error(err))
		case <-timer.C:
			r.log.Info(ctx, "reloading pages")
			r.Reload()
		}
	}
}
