// Package storage uploads user avatars to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AvatarPrefix namespaces avatar objects in the bucket.
const AvatarPrefix = "ContactsApp"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newUploader = func(c *s3.Client) uploader {
		return manager.NewUploader(c)
	}
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Options configures the bucket and credentials.
type S3Options struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	// PublicURL is the externally reachable prefix of the bucket.
	PublicURL string
}

// AvatarStore writes normalized avatar images and returns their public URL.
type AvatarStore struct {
	uploader  uploader
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewS3AvatarStore(ctx context.Context, o S3Options) (*AvatarStore, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(opts *s3.Options) {
		if o.BaseEndpoint != "" {
			opts.BaseEndpoint = aws.String(o.BaseEndpoint)
			opts.UsePathStyle = true
		}
	})

	return &AvatarStore{
		uploader:  newUploader(client),
		bucket:    o.Bucket,
		publicURL: strings.TrimRight(o.PublicURL, "/"),
		now:       time.Now,
	}, nil
}

// AvatarKey is the object key of a user's avatar.
func AvatarKey(userID int64) string {
	return AvatarPrefix + "/" + strconv.FormatInt(userID, 10) + ".png"
}

// UploadAvatar stores a PNG avatar for userID, replacing any previous one.
// The returned URL carries a version parameter so clients do not keep a
// stale copy.
func (s *AvatarStore) UploadAvatar(ctx context.Context, userID int64, png []byte) (string, error) {
	key := AvatarKey(userID)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	return fmt.Sprintf("%s/%s?v=%d", s.publicURL, key, s.now().Unix()), nil
}
