// Package s3store keeps course media (thumbnails, and videos when configured)
// in an S3-compatible bucket.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// ObjectAPI is the subset of *s3.Client the store calls.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	PublicURL    string
	UsePathStyle bool
}

type Store struct {
	api       ObjectAPI
	bucket    string
	publicURL string
}

var _ repository.IMediaStore = (*Store)(nil)

// NewClient builds an S3 client. Static keys are used when set, otherwise the
// default AWS credential chain applies.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func NewStore(api ObjectAPI, cfg Config) *Store {
	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &Store{api: api, bucket: cfg.Bucket, publicURL: publicURL}
}

func (s *Store) Upload(ctx context.Context, in repository.MediaUploadInput) (*model.MediaAsset, error) {
	ext := strings.ToLower(filepath.Ext(in.FileName))
	key := path.Join(in.Folder, uuid.NewString()+ext)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   in.Body,
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if in.Size > 0 {
		input.ContentLength = aws.Int64(in.Size)
	}
	if _, err := s.api.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", classify(err))
	}

	logger.GetLogger().WithField("storageId", key).Infof("Uploaded %s to s3://%s/%s", in.FileName, s.bucket, key)
	return &model.MediaAsset{
		StorageID:   key,
		URL:         s.publicURL + "/" + key,
		StorageType: model.StorageTypeS3,
		Bytes:       in.Size,
	}, nil
}

func (s *Store) Delete(ctx context.Context, storageID string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", s.bucket, storageID, classify(err))
	}
	return nil
}

// Probe confirms the object exists. S3 knows nothing about running time, so
// DurationSeconds stays 0.
func (s *Store) Probe(ctx context.Context, storageID string) (*model.MediaMetadata, error) {
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to head s3://%s/%s: %w", s.bucket, storageID, classify(err))
	}
	return &model.MediaMetadata{StorageID: storageID, Bytes: aws.ToInt64(out.ContentLength)}, nil
}

func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return errors.Join(err, model.ErrAssetNotFound)
		case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return errors.Join(err, model.ErrTransient)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "NoSuchBucket",
			"InvalidArgument", "InvalidRequest", "EntityTooLarge", "InvalidObjectState":
			return errors.Join(err, model.ErrRejected)
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch code := respErr.HTTPStatusCode(); {
		case code >= 500, code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
			return errors.Join(err, model.ErrTransient)
		case code == http.StatusNotFound:
			return errors.Join(err, model.ErrAssetNotFound)
		case code >= 400:
			return errors.Join(err, model.ErrRejected)
		}
	}
	return err
}
