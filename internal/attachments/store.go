// Package attachments keeps documents uploaded with a booking in S3.
package attachments

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/consultation-booking/pkg/logging"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store writes attachment bytes under caller-chosen keys.
type S3Store struct {
	bucket string
	client S3API
	logger *logging.Logger
}

// NewS3Store creates a store. If bucket is empty, all operations are no-ops.
func NewS3Store(client S3API, bucket string, logger *logging.Logger) *S3Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Store{bucket: bucket, client: client, logger: logger}
}

// Enabled returns true if a bucket and client are configured.
func (s *S3Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) error {
	if !s.Enabled() {
		return nil
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("attachments: s3 put %s: %w", key, err)
	}
	s.logger.Info("stored booking attachment", "s3_key", key, "bytes", len(data))
	return nil
}

// Open streams an object back. The caller closes the reader.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !s.Enabled() {
		return nil, "", ErrDisabled
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("attachments: s3 get %s: %w", key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}
