package media

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// putObjectAPI is the slice of the S3 client we use.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3-compatible bucket.
type S3Options struct {
	Bucket        string
	Region        string
	Endpoint      string // empty for AWS, set for MinIO or R2
	AccessKey     string // empty to use the default credential chain
	SecretKey     string
	PublicBaseURL string // prefix for object URLs; derived from Endpoint when empty
	UsePathStyle  bool
}

// S3Host stores thumbnails as objects in one bucket.
type S3Host struct {
	api        putObjectAPI
	bucket     string
	publicBase string
}

// NewS3Host loads AWS configuration and builds the client.
func NewS3Host(ctx context.Context, o S3Options) (*S3Host, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" && o.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = o.UsePathStyle
	})
	return newS3Host(client, o), nil
}

func newS3Host(api putObjectAPI, o S3Options) *S3Host {
	base := strings.TrimRight(o.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(o.Endpoint, "/") + "/" + o.Bucket
	}
	return &S3Host{api: api, bucket: o.Bucket, publicBase: base}
}

func (h *S3Host) Name() string { return "s3" }

// Upload puts obj under “<folder>/<name><ext>” and returns its public URL.
func (h *S3Host) Upload(ctx context.Context, obj Object) (string, error) {
	key := path.Join(obj.Folder, obj.Name+obj.Ext)
	_, err := h.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          obj.Body,
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(obj.Size),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return h.publicBase + "/" + key, nil
}
