package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	appconfig "leakbox/internal/config"
)

// S3Store keeps attachments in a bucket the service owns exclusively.
// It targets S3-compatible endpoints (MinIO, SeaweedFS) as well as AWS.
type S3Store struct {
	api    *s3.Client
	bucket string
}

func NewS3Store(cfg *appconfig.Config) (*S3Store, error) {
	if cfg.S3Endpoint == "" {
		return nil, errors.New("S3_ENDPOINT is required for the s3 storage backend")
	}
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required")
	}

	endpoint := cfg.S3Endpoint
	scheme := "https"
	if cfg.S3DisableTLS {
		scheme = "http"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &S3Store{api: client, bucket: cfg.S3Bucket}, nil
}

func (s *S3Store) Store(ctx context.Context, payload []byte, suggestedName string) (string, error) {
	sum := sha256.Sum256(payload)
	base := hex.EncodeToString(sum[:])[:20]
	key := base + "_" + uuid.New().String()[:8] + safeExt(suggestedName)

	size := int64(len(payload))
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(payload),
		ContentLength: &size,
		Metadata: map[string]string{
			"sha256": hex.EncodeToString(sum[:]),
		},
	})
	if err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}
	return key, nil
}

func (s *S3Store) Delete(ctx context.Context, reference string) error {
	if err := validateReference(reference); err != nil {
		return err
	}
	// S3 DeleteObject succeeds for absent keys, which matches the
	// idempotent contract.
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &reference,
	})
	if err != nil {
		return fmt.Errorf("delete attachment %s: %w", reference, err)
	}
	return nil
}

func (s *S3Store) Retrieve(ctx context.Context, reference string) ([]byte, error) {
	if err := validateReference(reference); err != nil {
		return nil, err
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &reference,
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("retrieve attachment %s: %w", reference, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	var refs []string
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list bucket: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if obj.LastModified.Before(cutoff) {
				refs = append(refs, *obj.Key)
			}
		}
	}
	return refs, nil
}
