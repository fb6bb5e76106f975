package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// S3Config describes the bucket holding actor state objects.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	HTTPClient      *http.Client
}

// S3StateRepository stores one JSON object per actor under
// <prefix><partition>/<key>.json.
type S3StateRepository struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3StateRepository builds the S3 client from cfg and the default AWS
// credential chain. Static keys in cfg take precedence.
func NewS3StateRepository(ctx context.Context, cfg S3Config) (*S3StateRepository, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "state/"
	}
	return &S3StateRepository{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (r *S3StateRepository) objectKey(partition, key string) string {
	return r.prefix + partition + "/" + key + ".json"
}

// ReadState downloads the object body.
func (r *S3StateRepository) ReadState(ctx context.Context, partition, key string) ([]byte, error) {
	objectKey := r.objectKey(partition, key)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &r.bucket, Key: &objectKey})
	if err != nil {
		if isS3NotFound(err) {
			return nil, appErrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", objectKey, err)
	}
	defer out.Body.Close()
	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", objectKey, err)
	}
	return payload, nil
}

// WriteState uploads payload, replacing any previous object.
func (r *S3StateRepository) WriteState(ctx context.Context, partition, key string, payload []byte) error {
	objectKey := r.objectKey(partition, key)
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &r.bucket,
		Key:         &objectKey,
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", objectKey, err)
	}
	return nil
}

// ClearState deletes the object. Deleting a missing object succeeds.
func (r *S3StateRepository) ClearState(ctx context.Context, partition, key string) error {
	objectKey := r.objectKey(partition, key)
	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &r.bucket, Key: &objectKey}); err != nil {
		if isS3NotFound(err) {
			return nil
		}
		return fmt.Errorf("s3 delete %s: %w", objectKey, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}
