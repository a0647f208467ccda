// Package s3 issues presigned PUT URLs against an S3-compatible bucket
// (AWS S3 or MinIO).
package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/AlfilAlex/taller-upy/internal/uploads"
)

// Config holds explicit construction parameters. Credentials fall back to
// the default AWS chain when not set.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// Signer issues presigned upload URLs for a single bucket.
type Signer struct {
	presign *s3.PresignClient
	bucket  string
}

// New creates an S3 upload signer from Config.
func New(ctx context.Context, cfg Config) (*Signer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Signer{presign: s3.NewPresignClient(client), bucket: cfg.Bucket}, nil
}

// Presign validates req against the upload policy and returns a PUT URL
// bound to the declared content type, length, and SHA-256 checksum, so a
// client cannot upload different bytes than it announced.
func (s *Signer) Presign(ctx context.Context, req uploads.Request, userID string) (*uploads.PresignedUpload, error) {
	if err := uploads.Validate(req); err != nil {
		return nil, err
	}

	key := uploads.Key(userID)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(req.MimeType),
		ContentLength: aws.Int64(req.FileSize),
	}
	if req.SHA256 != "" {
		input.ChecksumSHA256 = aws.String(req.SHA256)
	}

	out, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(uploads.URLExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}
	return &uploads.PresignedUpload{
		Key:       key,
		URL:       out.URL,
		ExpiresIn: int(uploads.URLExpiry.Seconds()),
	}, nil
}
