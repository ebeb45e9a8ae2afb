package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	appconfig "github.com/joynpoolmaster-tech/my-academy-bus/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// S3Storage uploads archived activity logs to the configured bucket.
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage builds a client from the default AWS credential chain.
func NewS3Storage(ctx context.Context) (*S3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(appconfig.AppConfig.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Storage{
		client: s3.NewFromConfig(cfg),
		bucket: appconfig.AppConfig.S3BucketName,
	}, nil
}

// UploadArchive stores one archive file and returns its object key.
func (s *S3Storage) UploadArchive(ctx context.Context, fileName string, data []byte) (string, error) {
	key := fmt.Sprintf("activity-logs/%s/%s", time.Now().UTC().Format("2006/01"), fileName)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	logrus.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
		"bytes":  len(data),
	}).Info("Log archive uploaded")
	return key, nil
}
