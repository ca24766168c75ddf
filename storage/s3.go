package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignExpiry is how long issued upload/download URLs stay valid.
const PresignExpiry = 3600 * time.Second

// Config controls the S3-compatible object storage backend.
type Config struct {
	Endpoint        string // empty for AWS proper; host or URL for MinIO/R2 etc.
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Insecure        bool
}

// Client wraps the S3 SDK for presigned-URL issuance and object deletion.
// It holds no per-request state and is safe for concurrent use; construct one
// at process start and inject it into the handlers that need it.
//
// Signature computation is entirely the SDK's; this type never proxies file
// bytes and never checks ownership — callers authorize keys before calling.
type Client struct {
	api     *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// New constructs a Client from explicit configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("storage: region is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("storage: credentials are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			endpoint := strings.TrimSpace(cfg.Endpoint)
			if !strings.Contains(endpoint, "://") {
				scheme := "https"
				if cfg.Insecure {
					scheme = "http"
				}
				endpoint = scheme + "://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Client{
		api:     api,
		presign: s3.NewPresignClient(api),
		bucket:  cfg.Bucket,
	}, nil
}

// PresignUpload grants write access to exactly one key for PresignExpiry.
// The key is returned unchanged so the caller can persist it once the client
// confirms the upload.
func (c *Client) PresignUpload(ctx context.Context, key string) (string, string, error) {
	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("storage: presign upload: %w", err)
	}
	return req.URL, key, nil
}

// PresignDownload grants read access to exactly one key for PresignExpiry.
func (c *Client) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("storage: presign download: %w", err)
	}
	return req.URL, nil
}

// Delete removes the object immediately. Failures propagate; retry policy is
// the caller's decision.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete object: %w", err)
	}
	return nil
}
