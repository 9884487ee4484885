package ImageHost

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"TeleCare/Models"
	"TeleCare/Store"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores images in a bucket under media/ and links them through a public
// base URL (bucket website, CDN) or the bucket's virtual-hosted address.
type S3 struct {
	client  putObjectAPI
	bucket  string
	baseURL string
}

func NewS3(ctx context.Context, bucket, publicBaseURL string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3: %w", Models.ErrNotConfigured)
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return newS3(s3.NewFromConfig(cfg), bucket, publicBaseURL), nil
}

func newS3(client putObjectAPI, bucket, publicBaseURL string) *S3 {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3{client: client, bucket: bucket, baseURL: publicBaseURL}
}

func (u *S3) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	contentType, ext, err := DetectType(data)
	if err != nil {
		return "", err
	}
	id, err := Store.NewKey()
	if err != nil {
		return "", err
	}
	key := "media/" + id + ext

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"original-name": filename},
	})
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}
	return u.baseURL + "/" + key, nil
}
