// Package s3store keeps ciphertext blobs in an S3-compatible bucket (AWS S3,
// MinIO) under keys derived from their CID.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/contentstore"
)

const ProviderName = "S3"

// ObjectAPI is the subset of *s3.Client used by Store.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configures the S3 client.
type Options struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Store struct {
	api    ObjectAPI
	bucket string
}

// New wraps an existing client.
func New(api ObjectAPI, bucket string) *Store {
	return &Store{api: api, bucket: bucket}
}

// NewFromOptions builds an S3 client with static credentials and a custom
// endpoint, using path-style addressing for MinIO compatibility.
func NewFromOptions(ctx context.Context, o Options) (*Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			o.User,
			o.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		so.UsePathStyle = true
	})

	return New(client, o.Bucket), nil
}

func (s *Store) Provider() string { return ProviderName }

func objectKey(contentID string) string {
	return "blobs/" + contentID
}

func (s *Store) Upload(ctx context.Context, data []byte) (string, error) {
	id, err := contentstore.ComputeCID(data)
	if err != nil {
		return "", contentstore.Unavailable("upload", err)
	}

	key := objectKey(id)
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	return id, nil
}

func (s *Store) Download(ctx context.Context, contentID string) ([]byte, error) {
	if err := contentstore.ValidateCID(contentID); err != nil {
		return nil, err
	}

	key := objectKey(contentID)
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrorNotFound
		}
		return nil, contentstore.Unavailable("download", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, contentstore.Unavailable("download", err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
