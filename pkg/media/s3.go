package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the slice of the S3 client the store uses. *s3.Client
// satisfies it; tests substitute an in-memory fake.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

const metaFilenameKey = "original-filename"

// S3Store stages images in an S3 bucket under a key prefix.
type S3Store struct {
	client  ObjectAPI
	bucket  string
	prefix  string
	maxSize int64

	// publicBaseURL, when set, is joined with the object key to form
	// Image.URL (a CDN origin, say). Empty leaves URL blank.
	publicBaseURL string
}

// S3Option configures an S3Store.
type S3Option func(*S3Store)

// WithPublicBaseURL sets the origin used to build image URLs.
func WithPublicBaseURL(base string) S3Option {
	return func(s *S3Store) {
		s.publicBaseURL = strings.TrimSuffix(base, "/")
	}
}

// NewS3Store stages images under prefix in bucket. maxSize of 0 means
// no limit.
func NewS3Store(client ObjectAPI, bucket, prefix string, maxSize int64, opts ...S3Option) *S3Store {
	s := &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: maxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *S3Store) Stage(ctx context.Context, up Upload, r io.Reader) (string, error) {
	if s.maxSize > 0 && up.DeclaredSize > s.maxSize {
		return "", ErrTooLarge
	}

	id := newImageID()
	key := s.key(id)

	// PutObject needs a seekable body for retries, so buffer the image.
	// Staged images are small enough for the size limit to bound this.
	var buf bytes.Buffer
	reader := r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(&buf, reader)
	if err != nil {
		return "", err
	}
	if s.maxSize > 0 && n > s.maxSize {
		return "", ErrTooLarge
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(up.ContentType),
		Metadata: map[string]string{
			metaFilenameKey: up.Filename,
		},
	})
	if err != nil {
		return "", fmt.Errorf("media: stage %s: %w", id, err)
	}
	return id, nil
}

func (s *S3Store) Claim(ctx context.Context, id string) (*Image, error) {
	key := s.key(id)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ErrNotFound
	}

	img := &Image{
		ID:          id,
		Filename:    id,
		ContentType: "application/octet-stream",
		Content:     obj.Body,
	}
	if fn, ok := head.Metadata[metaFilenameKey]; ok && fn != "" {
		img.Filename = fn
	}
	if head.ContentType != nil {
		img.ContentType = *head.ContentType
	}
	if head.ContentLength != nil {
		img.Size = *head.ContentLength
	}
	if s.publicBaseURL != "" {
		img.URL = s.publicBaseURL + "/" + key
	}

	// Claimed means consumed. The delete rides the request context so a
	// canceled claim leaves the object for the sweep to collect.
	s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	return img, nil
}

func (s *S3Store) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return removed, err
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			}); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (s *S3Store) key(id string) string {
	return s.prefix + id
}
