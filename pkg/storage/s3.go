// Package storage uploads rendered exports to S3 and signs download links.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// FolderExports is the key prefix of export objects.
	FolderExports = "exports"
	// ContentTypePDF is the content type of rendered exports.
	ContentTypePDF = "application/pdf"

	defaultPresignExpiry = 15 * time.Minute
	uploadPartSize       = 5 << 20
)

// S3Config holds the exports bucket and optional static credentials.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	PresignExpireMinutes int
}

// S3 stores export PDFs in a single bucket.
type S3 struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
	expiry   time.Duration
	logger   *zap.Logger
}

// staticCredentials prefers the configured keys and falls back to the
// standard AWS_* environment variables. ok is false when neither is set.
func staticCredentials(cfg S3Config) (aws.CredentialsProvider, bool) {
	key, secret := cfg.AccessKeyID, cfg.SecretAccessKey
	if key == "" || secret == "" {
		key, secret = os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if key == "" || secret == "" {
		return nil, false
	}
	return credentials.NewStaticCredentialsProvider(key, secret, ""), true
}

// NewS3 builds the client. Without static credentials the default AWS chain
// (instance role, shared config) is used.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if provider, ok := staticCredentials(cfg); ok {
		opts = append(opts, config.WithCredentialsProvider(provider))
	} else {
		logger.Warn("S3 using default credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	logger.Info("S3 exports storage ready", zap.String("region", cfg.Region), zap.String("bucket", cfg.ExportsBucket))
	return &S3{
		client:  client,
		presign: s3.NewPresignClient(client),
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = uploadPartSize
		}),
		bucket: cfg.ExportsBucket,
		expiry: presignExpire(cfg.PresignExpireMinutes),
		logger: logger,
	}, nil
}

// ExportKey returns exports/{job_id}/{filename}; directory parts of filename are dropped.
func ExportKey(jobID, filename string) string {
	return path.Join(FolderExports, jobID, path.Base(filename))
}

func presignExpire(minutes int) time.Duration {
	if minutes <= 0 {
		return defaultPresignExpiry
	}
	return time.Duration(minutes) * time.Minute
}

// Upload streams body into the exports bucket under key.
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if contentLength > 0 {
		in.ContentLength = aws.Int64(contentLength)
	}
	if _, err := s.uploader.Upload(ctx, in); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("export uploaded", zap.String("bucket", s.bucket), zap.String("key", key))
	return nil
}

// PresignDownload signs a GET for key that saves as filename in the browser.
func (s *S3) PresignDownload(ctx context.Context, key, filename string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", filename)),
		ResponseContentType:        aws.String(ContentTypePDF),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
