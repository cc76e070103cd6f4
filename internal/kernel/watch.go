package kernel

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hectormr206/orchestra/internal/events"
	"github.com/hectormr206/orchestra/internal/session"
)

const watchDebounce = 500 * time.Millisecond

// Watch runs the kernel once to completion, then keeps watching workDir
// for filesystem changes, debouncing bursts of events into a single
// re-plan. It returns when ctx is cancelled or the watcher itself fails
// to start.
func (k *Kernel) Watch(ctx context.Context) error {
	if err := k.Run(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addRecursive(watcher, k.opts.WorkDir); err != nil {
		return err
	}

	var debounce *time.Timer
	changed := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			k.publish(events.KernelEvent{Type: events.KernelWatchChange, FilePath: ev.Name})
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if k.log != nil {
				k.log.Warning("watch: %v", err)
			}

		case <-changed:
			k.publish(events.KernelEvent{Type: events.KernelWatchRerun})
			k.resetForRerun()
			if err := k.Run(ctx); err != nil {
				return err
			}
		}
	}
}

// resetForRerun rewinds the session to Planning so a changed working
// tree is re-planned from scratch, preserving checkpoints and history.
func (k *Kernel) resetForRerun() {
	k.sess.Iteration = 0
	k.sess.Files = nil
	k.sess.Plan = nil
	k.convergence = convergenceState{}
	_ = k.store.SetPhase(k.sess, session.PhasePlanning)
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepathWalkDirs(root, func(dir string) error {
		return watcher.Add(dir)
	})
}
