package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog/log"
)

var ErrURLResolutionFailed = errors.New("url resolution failed")

// URLResolver produces a time-limited fetch URL for a stored media object.
type URLResolver interface {
	ResolvePlayableURL(ctx context.Context, storageKey string) (string, time.Time, error)
}

// LocalResolver serves objects uploaded to the server's own /uploads directory.
// The URLs do not expire; the reported expiry is now + ttl so clients refresh on the
// same cadence as presigned ones.
type LocalResolver struct {
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewLocalResolver(baseURL string, ttl time.Duration) *LocalResolver {
	return &LocalResolver{baseURL: strings.TrimSuffix(baseURL, "/"), ttl: ttl, now: time.Now}
}

func (lr *LocalResolver) ResolvePlayableURL(ctx context.Context, storageKey string) (string, time.Time, error) {
	key := normalizeKey(storageKey)
	if key == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty storage key", ErrURLResolutionFailed)
	}
	if err := ctx.Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrURLResolutionFailed, err)
	}
	key = strings.TrimPrefix(key, "uploads/")
	return lr.baseURL + "/" + escapePath(key), lr.now().Add(lr.ttl).UTC(), nil
}

// SpacesResolver presigns GET requests against a DigitalOcean Spaces (S3 compatible) bucket.
type SpacesResolver struct {
	client *s3.S3
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

func NewSpacesResolver(endpoint, region, bucket, accessKey, secretKey string, ttl time.Duration) (*SpacesResolver, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &SpacesResolver{
		client: s3.New(sess),
		bucket: bucket,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (sr *SpacesResolver) ResolvePlayableURL(ctx context.Context, storageKey string) (string, time.Time, error) {
	key := normalizeKey(storageKey)
	if key == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty storage key", ErrURLResolutionFailed)
	}

	req, _ := sr.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(sr.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	expiresAt := sr.now().Add(sr.ttl).UTC()
	signed, err := req.Presign(sr.ttl)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to presign object")
		return "", time.Time{}, fmt.Errorf("%w: presign %s: %w", ErrURLResolutionFailed, key, err)
	}
	return signed, expiresAt, nil
}

// normalizeKey accepts bare keys as well as full CDN URLs stored by older uploads.
func normalizeKey(storageKey string) string {
	k := strings.TrimSpace(storageKey)
	if u, err := url.Parse(k); err == nil && u.Scheme != "" && u.Host != "" {
		k = u.Path
	}
	return strings.TrimPrefix(k, "/")
}

func escapePath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
