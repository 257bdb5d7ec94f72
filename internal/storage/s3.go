package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

// S3Config carries the connection settings for any S3-compatible store.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // DO Spaces, R2, MinIO, etc.
	AccessKeyID     string
	SecretAccessKey string
	PresignExpiry   time.Duration
}

// S3 implements Backend against any S3-compatible object store.
type S3 struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	cfg       S3Config
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		// adaptive retry, up to 5 attempts on transient failures
		config.WithRetryMode(aws.RetryModeAdaptive),
		config.WithRetryMaxAttempts(5),
	)
	if err != nil {
		return nil, mdlerr.StorageErr("load aws config", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = 15 * time.Minute
	}

	return &S3{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
		cfg:       cfg,
	}, nil
}

func (s *S3) Type() BackendType { return BackendS3 }

func (s *S3) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return mdlerr.StorageErr("put object", err)
	}
	return nil
}

// UploadStream always goes through the multipart manager.Uploader, which
// buffers and uploads parts concurrently regardless of whether the
// reader's total length is known in advance.
func (s *S3) UploadStream(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return mdlerr.StorageErr("multipart upload", err)
	}
	return nil
}

func (s *S3) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, mdlerr.NotFound("object")
		}
		return nil, mdlerr.StorageErr("get object", err)
	}
	return out.Body, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mdlerr.StorageErr("delete object", err)
	}
	return nil
}

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, mdlerr.StorageErr("head object", err)
	}
	return true, nil
}

func (s *S3) ContentLength(ctx context.Context, key string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, mdlerr.NotFound("object")
		}
		return 0, mdlerr.StorageErr("head object", err)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

func (s *S3) Copy(ctx context.Context, srcKey, dstKey string) error {
	// CopySource must be URL-encoded
	source := fmt.Sprintf("%s/%s", s.cfg.Bucket, url.PathEscape(srcKey))
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.cfg.Bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(source),
	})
	if err != nil {
		return mdlerr.StorageErr("copy object", err)
	}
	return nil
}

func (s *S3) GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = s.cfg.PresignExpiry
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", mdlerr.StorageErr("presign get", err)
	}
	return req.URL, nil
}

// PresignPut binds the expected content type into the signature so the
// client's PUT must carry the same Content-Type header to succeed.
func (s *S3) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = s.cfg.PresignExpiry
	}
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", mdlerr.StorageErr("presign put", err)
	}
	return req.URL, nil
}

// PublicURL derives the object URL: a configured endpoint (MinIO, DO
// Spaces, R2, ...) always gets path-style "{endpoint}/{bucket}/{key}" to
// match the path-style addressing the client itself uses; bare AWS gets
// the virtual-hosted "https://{bucket}.s3.{region}.amazonaws.com/{key}"
// form.
func (s *S3) PublicURL(key string) string {
	if s.cfg.Endpoint != "" {
		endpoint := strings.TrimSuffix(s.cfg.Endpoint, "/")
		return fmt.Sprintf("%s/%s/%s", endpoint, s.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
