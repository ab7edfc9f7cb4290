package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Dispatcher maps filesystem events onto bucket operations. Every
// action runs on its own goroutine; events on the same key are not
// serialized, the last writer to the bucket wins.
type Dispatcher struct {
	client   BucketClient
	uploader *Uploader
	bucket   string
	root     string
}

func NewDispatcher(client BucketClient, uploader *Uploader, appConfig AppConfig) *Dispatcher {
	return &Dispatcher{
		client:   client,
		uploader: uploader,
		bucket:   appConfig.Bucket,
		root:     appConfig.SourceFolder,
	}
}

// Run consumes events until the channel closes. It never blocks on a
// bucket call, so a burst of events does not queue behind the network.
func (d *Dispatcher) Run(events <-chan Event) {
	for ev := range events {
		d.handle(ev)
	}
	log.Debug("Event dispatcher drained")
}

func (d *Dispatcher) handle(ev Event) {
	switch ev.Op {
	case OpCreated, OpModified:
		// Editors churn temp files constantly; anything already gone
		// or not a regular file is skipped without a bucket call.
		if !isRegularFile(ev.Path) {
			log.Debug(fmt.Sprintf("Ignoring %s event for %s, not a regular file", ev.Op, ev.Path))
			return
		}
		d.uploader.Upload(ev.Path)
	case OpDeleted:
		go d.handleDeleted(ev)
	case OpMoved:
		if !isRegularFile(ev.Path) {
			// The rename destination is gone already. The source key
			// stays in the bucket until the next sweep.
			log.Debug(fmt.Sprintf("Ignoring move of %s, destination %s is not a regular file", ev.OldPath, ev.Path))
			return
		}
		go d.handleMoved(ev)
	}
}

// handleDeleted removes the key for a deleted path. The file is already
// gone so there is nothing to verify locally.
func (d *Dispatcher) handleDeleted(ev Event) {
	key, keyErr := relativeKey(d.root, ev.Path)
	if keyErr != nil {
		log.Error(fmt.Sprintf("Cannot derive key for %s: %s", ev.Path, keyErr))
		return
	}
	if delErr := d.client.DeleteObject(d.bucket, key); delErr != nil {
		log.Warn(fmt.Sprintf("Error deleting %s: %s", key, delErr))
		return
	}
	log.Info(fmt.Sprintf("Deleted %s from bucket %s", key, d.bucket))
}

// handleMoved uploads the destination before deleting the source key,
// so a failure mid-way leaves a duplicate rather than a hole.
func (d *Dispatcher) handleMoved(ev Event) {
	if uploadErr := d.uploader.uploadWithRetry(ev.Path); uploadErr != nil {
		log.Warn(fmt.Sprintf("Upload of move destination %s failed: %s", ev.Path, uploadErr))
	}

	oldKey, keyErr := relativeKey(d.root, ev.OldPath)
	if keyErr != nil {
		log.Error(fmt.Sprintf("Cannot derive key for %s: %s", ev.OldPath, keyErr))
		return
	}
	if delErr := d.client.DeleteObject(d.bucket, oldKey); delErr != nil {
		log.Warn(fmt.Sprintf("Error deleting %s: %s", oldKey, delErr))
		return
	}
	log.Info(fmt.Sprintf("Deleted %s from bucket %s", oldKey, d.bucket))
}
