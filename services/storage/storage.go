// Package storage puts lesson handouts and certificate images into
// S3-compatible object storage (AWS S3, DigitalOcean Spaces, MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
)

// Store saves objects and returns their public URL
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Config holds configuration for the S3 client
type Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS
	PublicURL string // CDN or bucket base URL; derived when empty
}

// S3Store is a Store backed by the S3 API
type S3Store struct {
	client    *s3.S3
	bucket    string
	publicURL string
}

// NewS3Store creates a client for the configured bucket
func NewS3Store(cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}

	awsCfg := &aws.Config{
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Region:      aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage session: %w", err)
	}

	return &S3Store{
		client:    s3.New(sess),
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
	}, nil
}

func publicBase(cfg Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	if cfg.Endpoint != "" {
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
		return fmt.Sprintf("https://%s.%s", cfg.Bucket, strings.TrimRight(host, "/"))
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// Put uploads data as a public object
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", apperr.Backend("failed to upload file", err)
	}
	return s.URL(key), nil
}

// Delete removes an object
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperr.Backend("failed to delete file", err)
	}
	return nil
}

// URL returns the public URL of a key
func (s *S3Store) URL(key string) string {
	return s.publicURL + "/" + key
}

// PresignedURL returns a temporary URL for a private object
func (s *S3Store) PresignedURL(key string, expiration time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}
	return url, nil
}

// Unconfigured rejects every write; used when no bucket is set
type Unconfigured struct{}

var errUnconfigured = apperr.Backend("object storage is not configured", nil)

func (Unconfigured) Put(context.Context, string, []byte, string) (string, error) {
	return "", errUnconfigured
}

func (Unconfigured) Delete(context.Context, string) error { return errUnconfigured }

// Key builds a unique object key under prefix, keeping the file extension
func Key(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%s%s", strings.Trim(prefix, "/"), uuid.New().String(), ext)
}

// KeyFromURL returns the object key of a URL produced by this store, or "" when it is foreign
func (s *S3Store) KeyFromURL(url string) string {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
