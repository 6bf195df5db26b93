package view

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Loader.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Loader loads templates from an S3 bucket. Object keys are Prefix+name
// and the object ETag is the freshness token.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	loader := view.NewS3Loader(s3.NewFromConfig(cfg), "my-bucket", "views/")
type S3Loader struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Loader returns a loader reading objects of bucket below prefix.
func NewS3Loader(client S3API, bucket, prefix string) *S3Loader {
	return &S3Loader{client: client, bucket: bucket, prefix: prefix}
}

// Load downloads the template object.
func (l *S3Loader) Load(ctx context.Context, name string) (Source, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.prefix + name),
	})
	if err != nil {
		return Source{}, s3Error(name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Source{}, fmt.Errorf("s3 read %s: %w", name, err)
	}

	return Source{Text: string(data), Token: aws.ToString(out.ETag)}, nil
}

// Fresh compares the current object ETag with token.
func (l *S3Loader) Fresh(ctx context.Context, name, token string) (bool, error) {
	out, err := l.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.prefix + name),
	})
	if err != nil {
		return false, s3Error(name, err)
	}

	return aws.ToString(out.ETag) == token, nil
}

func s3Error(name string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return fmt.Errorf("s3 %s: %w", name, err)
}
