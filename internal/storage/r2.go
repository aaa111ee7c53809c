// Package storage uploads artifacts to an S3-compatible bucket (Cloudflare R2).
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const (
	EnvAccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvSecretAccessKey = "R2_SECRET_ACCESS_KEY"
)

// Uploader stores a local file under key and returns its public URL, or
// "" when the object has no public address.
type Uploader interface {
	Store(ctx context.Context, localPath, key, contentType string) (string, error)
}

// Options locate the bucket. Endpoint overrides the account-derived R2
// endpoint.
type Options struct {
	AccountID       string
	Bucket          string
	PublicDomain    string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

func (o Options) endpoint() string {
	if o.Endpoint != "" {
		return o.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", o.AccountID)
}

// R2 uploads with the S3 API
type R2 struct {
	client       *s3.Client
	bucket       string
	publicDomain string
	log          zerolog.Logger
}

func NewR2(opts Options, log zerolog.Logger) (*R2, error) {
	if opts.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if opts.AccountID == "" && opts.Endpoint == "" {
		return nil, errors.New("storage account id is required")
	}
	if opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	client := s3.New(s3.Options{
		Region:                     "auto",
		BaseEndpoint:               aws.String(opts.endpoint()),
		Credentials:                credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		UsePathStyle:               true,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})

	return &R2{
		client:       client,
		bucket:       opts.Bucket,
		publicDomain: strings.TrimSuffix(opts.PublicDomain, "/"),
		log:          log.With().Str("component", "storage").Str("bucket", opts.Bucket).Logger(),
	}, nil
}

// Store implements Uploader
func (r *R2) Store(ctx context.Context, localPath, key, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat artifact: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	r.log.Debug().Str("key", key).Int64("bytes", info.Size()).Msg("Artifact uploaded")
	return r.PublicURL(key), nil
}

// PublicURL returns the address of key, or "" without a public domain
func (r *R2) PublicURL(key string) string {
	if r.publicDomain == "" {
		return ""
	}
	domain := r.publicDomain
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return domain + "/" + key
}

// Noop discards uploads
type Noop struct{}

func (Noop) Store(context.Context, string, string, string) (string, error) {
	return "", nil
}

// FromEnv builds an R2 uploader using credentials from the environment.
// Missing configuration disables uploads with a warning.
func FromEnv(opts *Options, log zerolog.Logger) Uploader {
	if opts == nil || opts.Bucket == "" {
		return Noop{}
	}

	resolved := *opts
	if resolved.AccessKeyID == "" {
		resolved.AccessKeyID = os.Getenv(EnvAccessKeyID)
	}
	if resolved.SecretAccessKey == "" {
		resolved.SecretAccessKey = os.Getenv(EnvSecretAccessKey)
	}

	r2, err := NewR2(resolved, log)
	if err != nil {
		log.Warn().Err(err).Msg("Uploads disabled")
		return Noop{}
	}
	return r2
}
