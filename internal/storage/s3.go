package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

// Photos above this go through the multipart uploader
const minMultipartSize = 8 << 20

// S3 deletes at most this many objects per request
const maxDeleteBatch = 1000

// Bucket stores photos in an S3 compatible bucket (AWS S3 or Cloudflare R2)
type Bucket struct {
	C        *s3.Client
	Bucket   *string
	uploader *manager.Uploader
}

// NewS3 connects to the AWS bucket configured under aws.*
func NewS3(ctx context.Context) (*Bucket, error) {
	return newBucket(ctx,
		viper.GetString("aws.access_key"),
		viper.GetString("aws.secret_access_key"),
		viper.GetString("aws.bucket"),
		func(o *s3.Options) {
			o.Region = viper.GetString("aws.region")
		},
	)
}

// NewR2 connects to the Cloudflare R2 bucket configured under cloudflare.*
func NewR2(ctx context.Context) (*Bucket, error) {
	return newBucket(ctx,
		viper.GetString("cloudflare.access_key_id"),
		viper.GetString("cloudflare.secret_access_key"),
		viper.GetString("cloudflare.bucket"),
		func(o *s3.Options) {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", viper.GetString("cloudflare.account_id")))
			o.Region = "auto"
		},
	)
}

func newBucket(ctx context.Context, accessKey, secretKey, bucketName string, opts func(*s3.Options)) (*Bucket, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(bucketName)
	client := s3.NewFromConfig(cfg, opts)

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", bucketName)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &Bucket{
		C:      client,
		Bucket: bucket,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = 3
			u.PartSize = 5 << 20
		}),
	}, nil
}

func (b *Bucket) Put(ctx context.Context, key, contentType string, data []byte) error {
	in := &s3.PutObjectInput{
		Bucket:        b.Bucket,
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("private, max-age=0"),
	}

	var err error
	if len(data) > minMultipartSize {
		_, err = b.uploader.Upload(ctx, in)
	} else {
		_, err = b.C.PutObject(ctx, in)
	}
	if err != nil {
		return fmt.Errorf("failed to upload photo, %w", err)
	}

	return nil
}

func (b *Bucket) Get(ctx context.Context, key string) ([]byte, string, error) {
	out, err := b.C.GetObject(ctx, &s3.GetObjectInput{
		Bucket: b.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", ErrNotFound
		}

		return nil, "", fmt.Errorf("failed to fetch photo, %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read photo, %w", err)
	}

	return data, aws.ToString(out.ContentType), nil
}

func (b *Bucket) Delete(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, end-start)
		for i, key := range keys[start:end] {
			objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		_, err := b.C.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: b.Bucket,
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete photos, %w", err)
		}
	}

	return nil
}
