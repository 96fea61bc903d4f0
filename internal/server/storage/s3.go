// Package storage issues presigned S3 (or MinIO) URLs for tour images.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/tours/internal/server/config"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// TourImageKey builds a fresh object key for an image of the given tour.
func TourImageKey(tourID string, now time.Time) string {
	return fmt.Sprintf("tours/%s/%d/%02d/%v", tourID, now.Year(), now.Month(), uuid.New())
}

type S3Presigner struct {
	region    string
	accessKey string
	secretKey string
	endpoint  string
	bucket    string
	validity  time.Duration
	now       func() time.Time
}

func NewS3Presigner(cfg *sc.Config) *S3Presigner {
	return &S3Presigner{
		region:    cfg.S3Region,
		accessKey: cfg.S3RootUser,     // MINIO_ROOT_USER
		secretKey: cfg.S3RootPassword, // MINIO_ROOT_PASSWORD
		endpoint:  cfg.S3BaseEndpoint,
		bucket:    cfg.S3Bucket,
		validity:  cfg.UploadURLValidityDuration,
		now:       time.Now,
	}
}

func (p *S3Presigner) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(p.accessKey, p.secretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.endpoint != "" {
			o.BaseEndpoint = aws.String(p.endpoint)
		}
		// MinIO serves buckets under the path, not as subdomains
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignTourImageUpload returns a PUT URL for a new image of tourID.
func (p *S3Presigner) PresignTourImageUpload(ctx context.Context, tourID, contentType string) (*models.UploadTarget, error) {
	pc, err := p.presignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := p.bucket
	key := TourImageKey(tourID, p.now())
	in := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(pc, ctx, in, s3.WithPresignExpires(p.validity))
	if err != nil {
		return nil, err
	}

	return &models.UploadTarget{Key: key, URL: req.URL}, nil
}
