// Package secrets resolves the JWT signing secret. A plain value is used as
// is; an s3://bucket/key reference is fetched once at startup from S3 or an
// S3-compatible store such as MinIO.
package secrets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const maxSecretBytes = 64 << 10

var ErrBadReference = errors.New("secret reference must look like s3://bucket/key")

// ObjectGetter is the part of *s3.Client used here.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Options struct {
	Region       string
	BaseEndpoint string // empty means AWS
	AccessKey    string // empty means the default credential chain
	SecretKey    string
}

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3Client builds a client the way the rest of the server talks to
// S3-compatible storage: static credentials when given, path-style addressing
// when a custom endpoint is set.
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
			so.UsePathStyle = true
		}
	}), nil
}

// ParseReference splits s3://bucket/path/to/key.
func ParseReference(ref string) (bucket, key string, err error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", ErrBadReference
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", ErrBadReference
	}
	return u.Host, key, nil
}

// FetchSecret downloads the object named by ref. Surrounding whitespace is
// trimmed so files written with a trailing newline work.
func FetchSecret(ctx context.Context, client ObjectGetter, ref string) ([]byte, error) {
	bucket, key, err := ParseReference(ref)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxSecretBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if len(b) > maxSecretBytes {
		return nil, fmt.Errorf("secret %s is larger than %d bytes", ref, maxSecretBytes)
	}

	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("secret %s is empty", ref)
	}
	return b, nil
}

// Resolve returns value itself unless it is an s3:// reference.
func Resolve(ctx context.Context, value string, o S3Options) ([]byte, error) {
	if !strings.HasPrefix(value, "s3://") {
		return []byte(value), nil
	}
	client, err := NewS3Client(ctx, o)
	if err != nil {
		return nil, err
	}
	return FetchSecret(ctx, client, value)
}
