package execdata

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Object    string
	UseSSL    bool
}

// S3Source reads a snapshot object from an S3-compatible store such as MinIO.
type S3Source struct {
	client *minio.Client
	bucket string
	object string
}

func NewS3Source(cfg S3Config) (*S3Source, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	object := strings.TrimPrefix(strings.TrimSpace(cfg.Object), "/")
	if object == "" {
		return nil, fmt.Errorf("s3 object is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	opts := &minio.Options{
		Secure: cfg.UseSSL,
		Region: region,
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	switch {
	case access != "" && secret != "":
		opts.Creds = credentials.NewStaticV4(access, secret, "")
	case access != "" || secret != "":
		return nil, fmt.Errorf("s3 access key and secret key must be set together")
	default:
		// Public buckets.
		opts.Creds = credentials.NewStaticV4("", "", "")
	}

	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Source{client: client, bucket: bucket, object: object}, nil
}

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("source is nil")
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing object before decoding starts.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("object %s/%s not found: %w", s.bucket, s.object, err)
		}
		return nil, err
	}
	return obj, nil
}

func (s *S3Source) String() string {
	if s == nil {
		return "s3:<nil>"
	}
	return "s3://" + s.bucket + "/" + s.object
}
