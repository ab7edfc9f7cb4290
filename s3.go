package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Client struct {
	Client *s3.Client
}

func (s *S3Client) ListObjects(bucket string) (map[string]struct{}, error) {
	bucketKeys := make(map[string]struct{})
	listParams := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	paginator := s3.NewListObjectsV2Paginator(s.Client, listParams, func(o *s3.ListObjectsV2PaginatorOptions) {})
	for paginator.HasMorePages() {
		currentPage, pageErr := paginator.NextPage(context.TODO())
		if pageErr != nil {
			return bucketKeys, pageErr
		}
		for _, object := range currentPage.Contents {
			bucketKeys[*object.Key] = struct{}{}
		}
	}

	return bucketKeys, nil
}

func (s *S3Client) UploadFile(bucket, key string, file *os.File) error {
	uploader := manager.NewUploader(s.Client)
	_, putErr := uploader.Upload(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})

	return putErr
}

func (s *S3Client) DeleteObject(bucket string, key string) error {
	delReq := &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	_, delErr := s.Client.DeleteObject(context.TODO(), delReq)

	return delErr
}
