// Package awscloud implements the storage, control-plane and notification
// interfaces against AWS: S3, SageMaker and SNS.
package awscloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// S3Store implements storage.ObjectStore on top of S3.
type S3Store struct {
	client *s3.Client
	log    logrus.FieldLogger
}

// NewS3Store creates an S3-backed object store.
func NewS3Store(log logrus.FieldLogger, cfg aws.Config) *S3Store {
	return &S3Store{
		client: s3.NewFromConfig(cfg),
		log:    log.WithField("component", "s3_store"),
	}
}

// Fetch downloads the object at bucket/key.
func (s *S3Store) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err)
	}

	return data, nil
}

// Store uploads data to bucket/key.
func (s *S3Store) Store(ctx context.Context, bucket, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", bucket, key, err)
	}

	return nil
}

// Copy copies an object server-side without downloading it.
func (s *S3Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	source := url.PathEscape(fmt.Sprintf("%s/%s", srcBucket, srcKey))

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(source),
	})
	if err != nil {
		return fmt.Errorf("copying s3://%s/%s to s3://%s/%s: %w", srcBucket, srcKey, dstBucket, dstKey, err)
	}

	s.log.WithFields(logrus.Fields{
		"source":      fmt.Sprintf("s3://%s/%s", srcBucket, srcKey),
		"destination": fmt.Sprintf("s3://%s/%s", dstBucket, dstKey),
	}).Debug("copied object")

	return nil
}
