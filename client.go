package main

import (
	"os"
)

type BucketClient interface {
	ListObjects(bucket string) (map[string]struct{}, error)
	UploadFile(bucket string, key string, file *os.File) error
	DeleteObject(bucket string, key string) error
}
