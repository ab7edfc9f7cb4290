package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type AppConfig struct {
	SourceFolder string `required:"true"`
	Bucket       string `required:"true"`
	Endpoint     string `required:"true"`
	AccessKey    string `required:"true"`
	SecretKey    string `required:"true"`
	Region       string `default:"us-east-1"`
	Concurrency  int    `default:"4"`
	RetryWait    int    `default:"30"`
	MaxRetries   int    `default:"15"`
	// ResweepMinutes > 0 schedules periodic full sweeps on top of the
	// live watch. 0 disables them.
	ResweepMinutes int
	LogFile        string
	SNSTopic       string
}

// ClientFromConfig builds the bucket client for the configured
// S3-compatible endpoint, authenticated with the static key pair.
func (c AppConfig) ClientFromConfig() (BucketClient, error) {
	var bucketClient BucketClient

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	if err != nil {
		return bucketClient, fmt.Errorf("Error creating s3 client: %+v", err)
	}

	awsS3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.Endpoint)
		// MinIO and friends want the bucket in the path, not the host.
		o.UsePathStyle = true
	})
	bucketClient = &S3Client{Client: awsS3Client}

	return bucketClient, nil
}

func (c AppConfig) ConfigStringArray() []string {
	configStrArr := make([]string, 0)
	configStrArr = append(configStrArr, fmt.Sprintf("  - SourceFolder: %s", c.SourceFolder))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Bucket: %s", c.Bucket))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Endpoint: %s", c.Endpoint))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Region: %s", c.Region))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Concurrent Sweep Transfers: %d", c.Concurrency))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Retry Wait: %ds, Max Retries: %d", c.RetryWait, c.MaxRetries))

	if c.ResweepMinutes > 0 {
		configStrArr = append(configStrArr, fmt.Sprintf("  - Resweep Every: %dm", c.ResweepMinutes))
	}
	if c.SNSTopic != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - SNSTopic: %s", c.SNSTopic))
	}

	return configStrArr
}
