// Package storage keeps the uploaded carnet photos. Photos live either in the
// relational store or in an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("photo not found")

type PhotoStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)
	Delete(ctx context.Context, keys ...string) error
}

// New picks the store configured by storage.type
func New(ctx context.Context, db *gorm.DB) (PhotoStore, error) {
	switch t := viper.GetString("storage.type"); t {
	case "", "database":
		return NewDatabase(db), nil
	case "s3":
		return NewS3(ctx)
	case "r2":
		return NewR2(ctx)
	default:
		return nil, fmt.Errorf("invalid storage type %q", t)
	}
}

// NewKey returns a fresh object key for a carnet photo
func NewKey() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate photo key, %w", err)
	}

	return "carnets/" + id, nil
}
