package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"psa-scraper/config"
)

// ObjectPutter is the slice of the S3 client the mirror needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror uploads saved images under <prefix>/<path relative to root>, so
// the bucket mirrors the local dataset layout.
type S3Mirror struct {
	client ObjectPutter
	bucket string
	prefix string
	root   string
}

func NewS3Mirror(client ObjectPutter, bucket, prefix, root string) *S3Mirror {
	return &S3Mirror{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		root:   root,
	}
}

// NewS3MirrorFromConfig loads AWS credentials the default way. A custom
// endpoint (e.g. localstack or MinIO) switches to path-style addressing.
func NewS3MirrorFromConfig(ctx context.Context, cfg *config.Config) (*S3Mirror, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		}
	})
	return NewS3Mirror(client, cfg.S3Bucket, cfg.S3Prefix, cfg.OutputDir), nil
}

// Key maps a local file path to its object key.
func (m *S3Mirror) Key(localPath string) string {
	rel, err := filepath.Rel(m.root, localPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(localPath)
	}
	key := filepath.ToSlash(rel)
	if m.prefix != "" {
		key = path.Join(m.prefix, key)
	}
	return key
}

// Mirror uploads data and returns its s3:// location.
func (m *S3Mirror) Mirror(ctx context.Context, localPath string, data []byte, contentType string) (string, error) {
	key := m.Key(localPath)
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", m.bucket, key), nil
}
