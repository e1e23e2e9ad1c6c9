package services

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// StorageService archives normalized screenshots so evaluations can be
// audited later. Optional: the evaluator runs without it.
type StorageService interface {
	ArchiveScreenshot(ctx context.Context, userID uuid.UUID, data []byte) (string, error)
}

type s3Storage struct {
	bucket string
	region string
	svc    *s3.S3
}

// NewS3StorageService returns nil when no bucket is configured.
func NewS3StorageService() (StorageService, error) {
	bucket := os.Getenv("SCREENSHOT_BUCKET")
	if bucket == "" {
		return nil, nil
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "eu-north-1"
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return &s3Storage{
		bucket: bucket,
		region: region,
		svc:    s3.New(sess),
	}, nil
}

func (s *s3Storage) ArchiveScreenshot(ctx context.Context, userID uuid.UUID, data []byte) (string, error) {
	key := fmt.Sprintf("screenshots/%s/%s.jpg", userID, uuid.New())

	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
