package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// semaphore caps concurrent transfers during a mirror sweep. Sized from
// AppConfig.Concurrency in main, and by TestMain in tests.
var semaphore chan int

type MirrorPlan struct {
	UploadKeys []string
	DeleteKeys []string
}

type MirrorResult struct {
	Upload map[string]error
	Delete map[string]error
	lock   *sync.Mutex
}

func NewMirrorResult() *MirrorResult {
	return &MirrorResult{
		Upload: make(map[string]error),
		Delete: make(map[string]error),
		lock:   new(sync.Mutex),
	}
}

func (r *MirrorResult) AddUploadResult(key string, result error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Upload[key] = result
}

func (r *MirrorResult) AddDeleteResult(key string, result error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Delete[key] = result
}

// Counts reports how many uploads and deletes succeeded.
func (r *MirrorResult) Counts() (uploaded int, deleted int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, err := range r.Upload {
		if err == nil {
			uploaded++
		}
	}
	for _, err := range r.Delete {
		if err == nil {
			deleted++
		}
	}
	return uploaded, deleted
}

// Err folds all per-key failures into a single error, nil when clean.
func (r *MirrorResult) Err() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	failed := 0
	for _, err := range r.Upload {
		if err != nil {
			failed++
		}
	}
	for _, err := range r.Delete {
		if err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d mirror request(s) failed", failed)
}

// doMirror runs one full reconciliation sweep: walk the source folder,
// list the bucket, and converge the bucket onto the local file set.
// Presence of a key is the only signal compared; keys on both sides are
// left untouched.
func doMirror(client BucketClient, appConfig AppConfig, notifier Notifier, lock *sync.Mutex) (*MirrorResult, error) {
	resultMap := NewMirrorResult()
	if !lock.TryLock() {
		log.Warn("Another mirror sweep is already running. Skipping.")
		return resultMap, fmt.Errorf("Unable to acquire mirror lock")
	}
	defer lock.Unlock()
	log.Info(fmt.Sprintf("Mirror sweep starting for %s.", appConfig.SourceFolder))
	sweepStartTime := time.Now()

	bucketKeys, listBucketErr := client.ListObjects(appConfig.Bucket)
	if listBucketErr != nil {
		log.Warn(fmt.Sprintf("listBucket err: %s", listBucketErr))
		return resultMap, fmt.Errorf("Error listing bucket: %s", listBucketErr)
	}
	localFiles, listLocalFilesErr := concreteWalkFunc(appConfig.SourceFolder)
	if listLocalFilesErr != nil {
		log.Warn(fmt.Sprintf("listLocalFilesErr: %s", listLocalFilesErr))
		return resultMap, fmt.Errorf("Error walking local directory: %s", listLocalFilesErr)
	}

	plan := MirrorPlan{
		UploadKeys: make([]string, 0),
		DeleteKeys: make([]string, 0),
	}
	for key := range localFiles {
		if _, ok := bucketKeys[key]; !ok {
			plan.UploadKeys = append(plan.UploadKeys, key)
		}
	}
	for key := range bucketKeys {
		if _, ok := localFiles[key]; !ok {
			plan.DeleteKeys = append(plan.DeleteKeys, key)
		}
	}

	mirrorPlanRequests(client, plan, resultMap, appConfig)
	duration := time.Since(sweepStartTime)
	uploaded, deleted := resultMap.Counts()
	log.Info(fmt.Sprintf("Mirror sweep complete for %s. Uploaded %d, deleted %d. Took %s",
		appConfig.SourceFolder, uploaded, deleted, duration.String()))

	if notifier != nil {
		notifier.NotifyMirrorResults(appConfig, resultMap)
	}

	return resultMap, resultMap.Err()
}

func mirrorPlanRequests(client BucketClient, plan MirrorPlan, resultMap *MirrorResult, appConfig AppConfig) {
	var wg sync.WaitGroup

	for _, key := range plan.UploadKeys {
		wg.Add(1)
		go doUploadFile(client, appConfig.Bucket, key, localPathForKey(appConfig.SourceFolder, key), &wg, resultMap)
	}

	for _, key := range plan.DeleteKeys {
		wg.Add(1)
		go doDeleteObject(client, appConfig.Bucket, key, &wg, resultMap)
	}

	wg.Wait()
}

func doUploadFile(
	client BucketClient,
	bucket, key, filePath string,
	wg *sync.WaitGroup,
	resultMap *MirrorResult,
) error {
	resultMap.AddUploadResult(key, nil)
	semaphore <- 1
	defer wg.Done()

	fd, fileErr := os.Open(filePath)
	if fileErr != nil {
		resultMap.AddUploadResult(key, fileErr)
		<-semaphore
		return fileErr
	}
	defer fd.Close()

	uploadErr := client.UploadFile(bucket, key, fd)
	if uploadErr != nil {
		log.Warn(fmt.Sprintf("Error uploading %s: %s", key, uploadErr))
		resultMap.AddUploadResult(key, uploadErr)
	} else {
		log.Info(fmt.Sprintf("Uploaded file %s as key %s", filePath, key))
	}
	<-semaphore

	return uploadErr
}

func doDeleteObject(
	client BucketClient,
	bucket, key string,
	wg *sync.WaitGroup,
	resultMap *MirrorResult,
) error {
	resultMap.AddDeleteResult(key, nil)
	semaphore <- 1
	defer wg.Done()

	delErr := client.DeleteObject(bucket, key)
	if delErr != nil {
		log.Warn(fmt.Sprintf("Error deleting: %s", delErr))
		resultMap.AddDeleteResult(key, delErr)
	} else {
		log.Info(fmt.Sprintf("Deleted %s from bucket %s", key, bucket))
	}
	<-semaphore

	return delErr
}
