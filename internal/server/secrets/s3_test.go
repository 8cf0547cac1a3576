package secrets

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	body      string
	err       error
	gotBucket string
	gotKey    string
}

func (f *fakeGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotBucket = aws.ToString(in.Bucket)
	f.gotKey = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestParseReference(t *testing.T) {
	b, k, err := ParseReference("s3://keys/prod/jwt.key")
	require.NoError(t, err)
	assert.Equal(t, "keys", b)
	assert.Equal(t, "prod/jwt.key", k)

	for _, bad := range []string{"", "plain", "s3://", "s3://bucket", "s3://bucket/", "https://bucket/key"} {
		_, _, err := ParseReference(bad)
		assert.ErrorIs(t, err, ErrBadReference, bad)
	}
}

func TestFetchSecret(t *testing.T) {
	g := &fakeGetter{body: "  top-secret\n"}

	got, err := FetchSecret(context.Background(), g, "s3://keys/jwt.key")
	require.NoError(t, err)
	assert.Equal(t, []byte("top-secret"), got)
	assert.Equal(t, "keys", g.gotBucket)
	assert.Equal(t, "jwt.key", g.gotKey)
}

func TestFetchSecret_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := FetchSecret(ctx, &fakeGetter{err: errors.New("access denied")}, "s3://keys/jwt.key")
	require.ErrorContains(t, err, "access denied")

	_, err = FetchSecret(ctx, &fakeGetter{body: " \n"}, "s3://keys/jwt.key")
	require.ErrorContains(t, err, "is empty")

	_, err = FetchSecret(ctx, &fakeGetter{body: strings.Repeat("x", maxSecretBytes+1)}, "s3://keys/jwt.key")
	require.ErrorContains(t, err, "larger than")

	_, err = FetchSecret(ctx, &fakeGetter{}, "not-a-ref")
	require.ErrorIs(t, err, ErrBadReference)
}

func TestResolve_PlainValue(t *testing.T) {
	got, err := Resolve(context.Background(), "plain-secret", S3Options{})
	require.NoError(t, err)
	assert.Equal(t, []byte("plain-secret"), got)
}

func TestNewS3Client_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := Resolve(context.Background(), "s3://keys/jwt.key", S3Options{Region: "us-east-1"})
	require.ErrorContains(t, err, "load aws config")
}

func TestNewS3Client_CustomEndpoint(t *testing.T) {
	c, err := NewS3Client(context.Background(), S3Options{
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minio",
		SecretKey:    "minio123",
	})
	require.NoError(t, err)

	o := c.Options()
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(o.BaseEndpoint))
	assert.True(t, o.UsePathStyle)
}
