package main

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rjeczalik/notify"
	log "github.com/sirupsen/logrus"
)

const (
	eventBufferSize     = 64
	defaultRenameWindow = 500 * time.Millisecond
)

type EventOp int

const (
	OpCreated EventOp = iota
	OpModified
	OpDeleted
	OpMoved
)

func (op EventOp) String() string {
	switch op {
	case OpCreated:
		return "created"
	case OpModified:
		return "modified"
	case OpDeleted:
		return "deleted"
	case OpMoved:
		return "moved"
	}
	return "unknown"
}

// Event is one filesystem change. For OpMoved, Path is the destination
// and OldPath the previous location; OldPath is empty otherwise.
type Event struct {
	Op      EventOp
	Path    string
	OldPath string
}

// Watcher turns raw inotify-style notifications for a directory tree
// into typed Events. Rename notifications arrive as two halves (old
// path, new path); pairRename stitches them back into a single OpMoved
// when both land inside renameWindow.
type Watcher struct {
	root         string
	raw          chan notify.EventInfo
	events       chan Event
	renameWindow time.Duration
	done         chan struct{}
	wg           sync.WaitGroup
}

func NewWatcher(root string) *Watcher {
	return &Watcher{
		root:         root,
		renameWindow: defaultRenameWindow,
		done:         make(chan struct{}),
	}
}

// Start begins watching root recursively. Events() is readable once
// Start returns nil.
func (w *Watcher) Start() error {
	log.Info(fmt.Sprintf("Watching %s for changes", w.root))

	w.raw = make(chan notify.EventInfo, eventBufferSize)
	w.events = make(chan Event, eventBufferSize)

	recursivePath := filepath.Join(w.root, "...")
	watchErr := notify.Watch(recursivePath, w.raw, notify.Create|notify.Write|notify.Remove|notify.Rename)
	if watchErr != nil {
		return watchErr
	}

	w.wg.Add(1)
	go w.translate()

	return nil
}

// Stop tears down the watch and joins the translator goroutine. The
// events channel is closed once the translator drains.
func (w *Watcher) Stop() {
	log.Info("Stopping filesystem watcher")
	notify.Stop(w.raw)
	close(w.done)
	w.wg.Wait()
	log.Info("Filesystem watcher stopped")
}

func (w *Watcher) Events() <-chan Event {
	return w.events
}

// translate maps raw notifications onto typed Events. It owns the
// pending rename source: a Rename whose path no longer exists is held
// until either its destination half shows up (emit OpMoved) or the
// rename window elapses (emit OpDeleted).
func (w *Watcher) translate() {
	defer func() {
		close(w.events)
		w.wg.Done()
	}()

	var pendingSrc string
	flushTimer := time.NewTimer(0)
	if !flushTimer.Stop() {
		<-flushTimer.C
	}

	flushPending := func() {
		if pendingSrc != "" {
			w.emit(Event{Op: OpDeleted, Path: pendingSrc})
			pendingSrc = ""
		}
	}

	for {
		select {
		case <-w.done:
			flushPending()
			return
		case <-flushTimer.C:
			flushPending()
		case ei, ok := <-w.raw:
			if !ok {
				flushPending()
				return
			}
			switch ei.Event() {
			case notify.Create:
				w.emit(Event{Op: OpCreated, Path: ei.Path()})
			case notify.Write:
				w.emit(Event{Op: OpModified, Path: ei.Path()})
			case notify.Remove:
				w.emit(Event{Op: OpDeleted, Path: ei.Path()})
			case notify.Rename:
				pendingSrc = w.pairRename(ei.Path(), pendingSrc, flushTimer)
			}
		}
	}
}

// pairRename handles one half of a rename. A path that still exists is
// the destination half; one that is gone is the source half.
func (w *Watcher) pairRename(path, pendingSrc string, flushTimer *time.Timer) string {
	if isRegularFile(path) || isDir(path) {
		stopTimer(flushTimer)
		if pendingSrc != "" {
			w.emit(Event{Op: OpMoved, Path: path, OldPath: pendingSrc})
			return ""
		}
		// Destination with no known source: the file was moved in
		// from outside the watched tree.
		w.emit(Event{Op: OpCreated, Path: path})
		return ""
	}

	// Source half. If another source is already pending its
	// destination never arrived, so it was moved out of the tree.
	if pendingSrc != "" {
		w.emit(Event{Op: OpDeleted, Path: pendingSrc})
	}
	stopTimer(flushTimer)
	flushTimer.Reset(w.renameWindow)
	return path
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
		log.Debug(fmt.Sprintf("Filesystem event: %s %s", ev.Op, ev.Path))
	default:
		log.Warn(fmt.Sprintf("Event channel full, dropping %s for %s", ev.Op, ev.Path))
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
