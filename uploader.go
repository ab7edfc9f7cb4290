package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// errFileVanished marks an upload whose file disappeared (or stopped
// being a regular file) between the event firing and the attempt.
var errFileVanished = errors.New("file vanished before upload")

// Uploader pushes single files into the bucket with bounded retry.
// Each Upload call runs on its own goroutine; nothing is shared between
// concurrent uploads.
type Uploader struct {
	client     BucketClient
	bucket     string
	root       string
	retryWait  time.Duration
	maxRetries int
}

func NewUploader(client BucketClient, appConfig AppConfig) *Uploader {
	return &Uploader{
		client:     client,
		bucket:     appConfig.Bucket,
		root:       appConfig.SourceFolder,
		retryWait:  time.Duration(appConfig.RetryWait) * time.Second,
		maxRetries: appConfig.MaxRetries,
	}
}

// Upload is fire-and-forget: the caller never blocks and never sees an
// error. Terminal failures are logged and dropped.
func (u *Uploader) Upload(path string) {
	go u.uploadWithRetry(path)
}

// uploadWithRetry drives uploadAttempt up to maxRetries times, sleeping
// retryWait * attempt between tries. Only transient-access failures
// (the file is mid-write or locked) retry; anything else fails fast.
func (u *Uploader) uploadWithRetry(path string) error {
	var attemptErr error
	for attempt := 1; attempt <= u.maxRetries; attempt++ {
		attemptErr = u.uploadAttempt(path)
		if attemptErr == nil {
			return nil
		}
		if errors.Is(attemptErr, errFileVanished) {
			log.Debug(fmt.Sprintf("Skipping upload of %s, file is gone", path))
			return nil
		}
		if !isTransientAccess(attemptErr) {
			log.Error(fmt.Sprintf("Upload failed for %s: %s", path, attemptErr))
			return attemptErr
		}
		if attempt%5 == 0 {
			log.Warn(fmt.Sprintf("Still unable to read %s after %d attempts: %s", path, attempt, attemptErr))
		}
		if attempt < u.maxRetries {
			time.Sleep(u.retryWait * time.Duration(attempt))
		}
	}
	log.Error(fmt.Sprintf("Giving up on %s after %d attempts: %s", path, u.maxRetries, attemptErr))
	return attemptErr
}

func (u *Uploader) uploadAttempt(path string) error {
	if !isRegularFile(path) {
		return errFileVanished
	}

	fd, openErr := os.Open(path)
	if openErr != nil {
		return openErr
	}
	defer fd.Close()

	key, keyErr := relativeKey(u.root, path)
	if keyErr != nil {
		return keyErr
	}

	uploadErr := u.client.UploadFile(u.bucket, key, fd)
	if uploadErr != nil {
		return uploadErr
	}

	log.Info(fmt.Sprintf("Uploaded file %s as key %s", path, key))
	return nil
}

// isTransientAccess reports whether err is a permission/access failure,
// the class seen when a file is still being written or is exclusively
// locked by another process.
func isTransientAccess(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
