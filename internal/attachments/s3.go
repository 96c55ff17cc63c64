package attachments

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes attachments under designs/<yyyy>/<mm>/<dd>/ in one bucket.
type S3Store struct {
	client  S3API
	bucket  string
	baseURL string
}

// NewS3Store builds an S3 store. When baseURL is set, links are baseURL/key;
// otherwise they are s3://bucket/key.
func NewS3Store(client S3API, bucket, baseURL string) *S3Store {
	if client == nil {
		panic("attachments: s3 client required")
	}
	if bucket == "" {
		panic("attachments: bucket required")
	}
	return &S3Store{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *S3Store) Put(ctx context.Context, a Attachment) (string, error) {
	if len(a.Data) == 0 {
		return "", ErrEmpty
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now()
	}
	ts := a.UploadedAt.UTC()
	key := fmt.Sprintf("designs/%d/%02d/%02d/%s", ts.Year(), ts.Month(), ts.Day(), ObjectName(a))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(a.Data),
		ContentType: aws.String(a.MimeType),
	})
	if err != nil {
		return "", fmt.Errorf("attachments: s3 put %s: %w", key, err)
	}
	if s.baseURL != "" {
		return s.baseURL + "/" + key, nil
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
