package filesystem

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tfshrms.cloud/hrms/infrastructure/metrics"
)

// S3Store keeps uploaded files under <prefix>/<dir>/<name> in one bucket.
type S3Store struct {
	client        *s3.Client
	bucket        string
	prefix        string
	publicBaseURL string
}

func NewS3Store(ctx context.Context, bucket, prefix, publicBaseURL string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &S3Store{
		client:        s3.NewFromConfig(cfg),
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *S3Store) key(dir, name string) string {
	return path.Join(s.prefix, dir, path.Base(name))
}

// Put stores body and returns the stored file name.
func (s *S3Store) Put(ctx context.Context, dir, name string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(dir, name)),
		Body:   body,
	})
	metrics.FileOperationsTotal.WithLabelValues("put", metrics.Result(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("failed to put object %s into bucket %s: %w", name, s.bucket, err)
	}
	return path.Base(name), nil
}

func (s *S3Store) Delete(ctx context.Context, dir, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(dir, name)),
	})
	metrics.FileOperationsTotal.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", name, s.bucket, err)
	}
	return nil
}

func (s *S3Store) URL(dir, name string) string {
	if name == "" {
		return ""
	}
	return s.publicBaseURL + "/" + s.key(dir, name)
}

// ListFiles returns the file names stored under dir.
func (s *S3Store) ListFiles(ctx context.Context, dir string) ([]string, error) {
	prefix := path.Join(s.prefix, dir) + "/"
	var names []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", s.bucket, err)
		}

		for _, obj := range page.Contents {
			if obj.Key != nil {
				names = append(names, strings.TrimPrefix(*obj.Key, prefix))
			}
		}
	}

	return names, nil
}
