package objectstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner issues time-bounded, signed URLs against an S3Store's bucket,
// for clients that need to upload or download a document directly rather
// than proxying the bytes through the API.
type Presigner struct {
	store  *S3Store
	client *s3.PresignClient
}

// NewPresigner wraps store's underlying S3 client with a presign client.
func NewPresigner(store *S3Store) *Presigner {
	return &Presigner{store: store, client: s3.NewPresignClient(store.client)}
}

// SignUpload returns a presigned PUT URL for key, valid for expiry.
func (p *Presigner) SignUpload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.store.bucket),
		Key:    aws.String(p.store.fullKey(key)),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("objectstore: presign upload %s: %w", key, err)
	}
	return req.URL, nil
}

// SignDownload returns a presigned GET URL for key, valid for expiry.
func (p *Presigner) SignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.store.bucket),
		Key:    aws.String(p.store.fullKey(key)),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("objectstore: presign download %s: %w", key, err)
	}
	return req.URL, nil
}
