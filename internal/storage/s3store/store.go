// Package s3store stores sample objects in an S3-compatible service (AWS or
// MinIO). It implements the blob store only; S3 has no stored access
// policies, so policy-bound tokens need a separate policy backend.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/blobsas/internal/logging"
	"github.com/dmitrijs2005/blobsas/internal/sas"
)

// Options configures the S3 connection.
type Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

type api interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) api {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Store struct {
	client   api
	endpoint sas.ServiceEndpoint
	logger   logging.Logger
}

func New(ctx context.Context, o Options, logger logging.Logger) (*Store, error) {
	endpoint, err := sas.NewServiceEndpoint(o.BaseEndpoint)
	if err != nil {
		return nil, err
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			o.AccessKey,
			o.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		so.BaseEndpoint = aws.String(o.BaseEndpoint)
		so.UsePathStyle = true
	})

	return &Store{client: client, endpoint: endpoint, logger: logger.With("module", "s3_storage")}, nil
}

func (s *Store) ResolveURI(ref sas.ResourceReference) string {
	return s.endpoint.ResolveURI(ref)
}

func (s *Store) EnsureContainer(ctx context.Context, name string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err == nil {
		s.logger.Debug(ctx, "bucket already exists", "bucket", name)
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("head bucket %q: %w", name, err)
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket %q: %w", name, err)
	}

	s.logger.Info(ctx, "bucket created", "bucket", name)
	return nil
}

func (s *Store) Upload(ctx context.Context, ref sas.ResourceReference, data []byte) error {
	if ref.IsContainer() {
		return fmt.Errorf("upload needs an object reference, got bucket %q", ref.Container)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(ref.Container),
		Key:           aws.String(ref.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", ref.Key, err)
	}

	s.logger.Info(ctx, "object uploaded", "bucket", ref.Container, "object", ref.Key, "size", len(data))
	return nil
}

// isNotFound matches both the modeled HeadBucket error and the bare
// codes some S3-compatible servers send instead.
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
