package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func newTestUploader(client BucketClient, root string, maxRetries int) *Uploader {
	return NewUploader(client, AppConfig{
		SourceFolder: root,
		Bucket:       "not-real-bucket",
		RetryWait:    0,
		MaxRetries:   maxRetries,
	})
}

func TestUploadSucceedsWithRelativeKey(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "sub/report.csv")

	mockClient := NewMockClient(nil)
	uploader := newTestUploader(mockClient, root, 15)

	uploadErr := uploader.uploadWithRetry(filepath.Join(root, "sub", "report.csv"))

	assert.Nil(t, uploadErr)
	uploads := mockClient.RequestsByAction("Upload")
	assert.Len(t, uploads, 1)
	assert.Equal(t, "sub/report.csv", uploads[0].Key)
	assert.Equal(t, "not-real-bucket", uploads[0].Bucket)
}

func TestUploadVanishedFileMakesNoGatewayCalls(t *testing.T) {
	root := t.TempDir()
	mockClient := NewMockClient(nil)
	uploader := newTestUploader(mockClient, root, 15)

	uploadErr := uploader.uploadWithRetry(filepath.Join(root, "never-existed.txt"))

	assert.Nil(t, uploadErr)
	assert.Len(t, mockClient.RequestLog(), 0)
}

func TestUploadRetriesTransientFailureUpToCap(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "locked.bin")

	mockClient := NewMockClient(nil)
	mockClient.UploadErr = fmt.Errorf("file is mid-write: %w", fs.ErrPermission)
	uploader := newTestUploader(mockClient, root, 7)

	hook := logtest.NewGlobal()
	defer hook.Reset()

	uploadErr := uploader.uploadWithRetry(filepath.Join(root, "locked.bin"))

	assert.NotNil(t, uploadErr)
	assert.Len(t, mockClient.RequestsByAction("Upload"), 7)

	// one warning at attempt 5, the terminal failure logs an error
	warnings := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestUploadDoesNotRetryFatalFailures(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "a.txt")

	mockClient := NewMockClient(nil)
	mockClient.UploadErr = assert.AnError
	uploader := newTestUploader(mockClient, root, 15)

	uploadErr := uploader.uploadWithRetry(filepath.Join(root, "a.txt"))

	assert.ErrorIs(t, uploadErr, assert.AnError)
	assert.Len(t, mockClient.RequestsByAction("Upload"), 1)
}

func TestUploadBackoffGrowsLinearly(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "slow.txt")

	mockClient := NewMockClient(nil)
	mockClient.UploadErr = fmt.Errorf("still locked: %w", fs.ErrPermission)
	uploader := newTestUploader(mockClient, root, 3)
	uploader.retryWait = time.Millisecond

	start := time.Now()
	uploader.uploadWithRetry(filepath.Join(root, "slow.txt"))
	elapsed := time.Since(start)

	// waits are wait*1 + wait*2 between the three attempts
	assert.GreaterOrEqual(t, elapsed, 3*time.Millisecond)
	assert.Len(t, mockClient.RequestsByAction("Upload"), 3)
}
